// Package providers defines the provider-neutral completion model: messages
// built from tagged content blocks, completion requests/responses, stream
// events, and the Provider interface concrete backends implement.
package providers

import (
	"context"
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Block type tags. The set is closed; consumers dispatch with a single
// switch on Type.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockThinking   = "thinking"
)

// ContentBlock is one typed unit of message content. Only the fields for
// the given Type are populated.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

func ThinkingBlock(thinking string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Thinking: thinking}
}

// MessageContent is either plain text or an ordered block sequence. When
// Blocks is non-nil it takes precedence over Text.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
}

func TextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

func BlocksContent(blocks ...ContentBlock) MessageContent {
	return MessageContent{Blocks: blocks}
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Blocks = nil
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.Text = ""
	c.Blocks = blocks
	return nil
}

// ToText flattens the content to plain text: block contents are joined
// with newlines, non-text blocks are skipped.
func (c MessageContent) ToText() string {
	if c.Blocks == nil {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: TextContent(text)}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: TextContent(text)}
}

// ToolDefinition describes one callable capability offered to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type CompletionRequest struct {
	Model         string           `json:"model"`
	System        string           `json:"system,omitempty"`
	Messages      []Message        `json:"messages"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	MaxTokens     int              `json:"max_tokens"`
	Temperature   *float64         `json:"temperature,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
}

// Usage counters are reported per call, never cumulative; callers aggregate.
type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens,omitempty"`
}

type CompletionResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason,omitempty"`
	Usage      Usage          `json:"usage"`
}

// TextContent joins the text blocks of the response.
func (r *CompletionResponse) TextContent() string {
	var parts []string
	for _, b := range r.Content {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool_use blocks of the response in order.
func (r *CompletionResponse) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

type StreamEventType string

// Stream event variants. For a given block index, start precedes deltas,
// which precede stop; EventMessageStop is terminal for the request.
const (
	EventMessageStart      StreamEventType = "message_start"
	EventContentBlockStart StreamEventType = "content_block_start"
	EventContentBlockDelta StreamEventType = "content_block_delta"
	EventContentBlockStop  StreamEventType = "content_block_stop"
	EventMessageDelta      StreamEventType = "message_delta"
	EventMessageStop       StreamEventType = "message_stop"
	EventPing              StreamEventType = "ping"
	EventError             StreamEventType = "error"
)

// Delta type tags within content_block_delta events.
const (
	DeltaText      = "text_delta"
	DeltaInputJSON = "input_json_delta"
	DeltaThinking  = "thinking_delta"
)

type ContentDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
}

// StreamEvent is one normalized increment of a streaming response. Only
// the fields relevant to Type are populated.
type StreamEvent struct {
	Type StreamEventType

	// message_start
	ID    string
	Model string

	// content_block_* events
	Index        int
	ContentBlock *ContentBlock
	Delta        *ContentDelta

	// message_delta
	StopReason string
	Usage      *Usage

	// error
	Message string
}

// Provider is the capability interface the gateway depends on. One
// concrete backend is registered at startup; the gateway never references
// a concrete type.
type Provider interface {
	// Complete performs a non-streaming completion call.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream performs a streaming call. Events arrive on the returned
	// channel in production order; the channel is closed when the stream
	// ends. The channel is bounded: a slow consumer pauses the upstream
	// network read rather than growing a buffer.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamEvent, error)

	// Name identifies the backend ("anthropic").
	Name() string
}
