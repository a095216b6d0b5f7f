// Package session holds in-memory conversation state keyed by
// agent/channel/chat identity, with capacity-bounded eviction.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clawgate/clawgate/pkg/providers"
)

type Session struct {
	ID           string              `json:"id"`
	Key          string              `json:"key"`
	AgentID      string              `json:"agent_id"`
	Channel      string              `json:"channel"`
	Messages     []providers.Message `json:"messages"`
	SystemPrompt string              `json:"system_prompt,omitempty"`
	Created      time.Time           `json:"created"`
	Updated      time.Time           `json:"updated"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	ContextFiles []string            `json:"context_files,omitempty"`
}

// BuildSessionKey is the canonical key format. All lookups and eviction
// decisions go through keys in this shape.
func BuildSessionKey(agentID, channel, chatID string) string {
	return fmt.Sprintf("agent:%s:%s:%s", agentID, channel, chatID)
}

func newSession(key, agentID, channel string) *Session {
	now := time.Now()
	return &Session{
		ID:      uuid.NewString(),
		Key:     key,
		AgentID: agentID,
		Channel: channel,
		Created: now,
		Updated: now,
	}
}

// Clone copies the session for handoff across the store boundary. The
// Messages slice is copied so the caller's appends never alias the stored
// entry; blocks inside messages are append-only and safe to share.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]providers.Message(nil), s.Messages...)
	c.ContextFiles = append([]string(nil), s.ContextFiles...)
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (s *Session) AddUserMessage(text string) {
	s.Messages = append(s.Messages, providers.UserMessage(text))
	s.Updated = time.Now()
}

func (s *Session) AddAssistantMessage(text string) {
	s.Messages = append(s.Messages, providers.AssistantMessage(text))
	s.Updated = time.Now()
}

// AddAssistantBlocks records an assistant turn that contains structured
// blocks (tool_use, thinking) rather than plain text.
func (s *Session) AddAssistantBlocks(blocks []providers.ContentBlock) {
	s.Messages = append(s.Messages, providers.Message{
		Role:    providers.RoleAssistant,
		Content: providers.BlocksContent(blocks...),
	})
	s.Updated = time.Now()
}

func (s *Session) AddToolResult(toolUseID, content string, isError bool) {
	s.Messages = append(s.Messages, providers.Message{
		Role:    providers.RoleTool,
		Content: providers.BlocksContent(providers.ToolResultBlock(toolUseID, content, isError)),
	})
	s.Updated = time.Now()
}

func (s *Session) LastAssistantText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == providers.RoleAssistant {
			return s.Messages[i].Content.ToText()
		}
	}
	return ""
}

func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// ApproximateTokens estimates the context size as total characters / 4.
// It is a heuristic for reporting, not a billing figure.
func (s *Session) ApproximateTokens() int {
	chars := len(s.SystemPrompt)
	for _, m := range s.Messages {
		chars += len(m.Content.ToText())
	}
	return chars / 4
}
