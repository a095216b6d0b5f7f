// Package anthropic implements providers.Provider against the Anthropic
// Messages API over raw HTTP, including the SSE stream translation.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"

	// streamChannelSize bounds the event channel. When the consumer stops
	// draining, sends block and the network read pauses with them.
	streamChannelSize = 100

	defaultRetryAfter = 60 * time.Second
)

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewProvider(apiKey string) *Provider {
	return NewProviderWithBaseURL(apiKey, "")
}

func NewProviderWithBaseURL(apiKey, baseURL string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// No client timeout: streaming responses are open-ended.
			// Cancellation comes from the request context.
		},
	}
}

func (p *Provider) Name() string {
	return "anthropic"
}

// buildRequestBody maps the neutral request onto the Messages API wire
// format. System messages are lifted into the top-level system field;
// tool-role messages are sent as user messages (tool results are not a
// distinct role on this wire).
func buildRequestBody(req *providers.CompletionRequest) map[string]any {
	var system []string
	if req.System != "" {
		system = append(system, req.System)
	}

	messages := make([]map[string]any, 0, len(req.Messages))
	for _, msg := range req.Messages {
		var role string
		switch msg.Role {
		case providers.RoleSystem:
			system = append(system, msg.Content.ToText())
			continue
		case providers.RoleTool:
			role = "user"
		case providers.RoleAssistant:
			role = "assistant"
		default:
			role = "user"
		}

		var content any
		if msg.Content.Blocks != nil {
			content = msg.Content.Blocks
		} else {
			content = msg.Content.Text
		}

		messages = append(messages, map[string]any{
			"role":    role,
			"content": content,
		})
	}

	body := map[string]any{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": req.MaxTokens,
	}

	if len(system) > 0 {
		body["system"] = strings.Join(system, "\n\n")
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
	}
	if len(req.StopSequences) > 0 {
		body["stop_sequences"] = req.StopSequences
	}
	if req.Stream {
		body["stream"] = true
	}

	return body
}

func (p *Provider) post(ctx context.Context, req *providers.CompletionRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(buildRequestBody(req))
	if err != nil {
		return nil, providers.NewInvalidRequestError(err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, providers.NewInvalidRequestError(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewNetworkError(err.Error())
	}
	return resp, nil
}

// classifyStatus maps a non-2xx response to the provider error taxonomy.
// The body is consumed.
func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return providers.NewAuthError(string(body))
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		if v := resp.Header.Get("retry-after"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return providers.NewRateLimitedError(retryAfter.Milliseconds())
	default:
		return providers.NewAPIError(resp.StatusCode, string(body))
	}
}

func (p *Provider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	logger.DebugCF("anthropic", "completion request", map[string]any{
		"model":    req.Model,
		"messages": len(req.Messages),
	})

	resp, err := p.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, classifyStatus(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewNetworkError(err.Error())
	}

	var completion providers.CompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, providers.NewOtherError(fmt.Sprintf("failed to parse response: %v", err))
	}
	return &completion, nil
}

// Stream issues the request with the streaming flag set and translates the
// SSE body into StreamEvents on a bounded channel. The channel is closed
// when the stream ends; cancelling ctx stops the producer without error.
func (p *Provider) Stream(ctx context.Context, req *providers.CompletionRequest) (<-chan providers.StreamEvent, error) {
	streamReq := *req
	streamReq.Stream = true

	resp, err := p.post(ctx, &streamReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, classifyStatus(resp)
	}

	events := make(chan providers.StreamEvent, streamChannelSize)
	go p.consumeSSE(ctx, resp.Body, events)
	return events, nil
}

// consumeSSE is the line-buffering loop: an "event:" line sets the pending
// event type, the following "data:" line is parsed and emitted. A literal
// [DONE] payload ends the stream immediately, independent of the typed flow.
func (p *Provider) consumeSSE(ctx context.Context, body io.ReadCloser, events chan<- providers.StreamEvent) {
	defer close(events)
	defer body.Close()

	emit := func(ev providers.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	currentEventType := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if eventType, ok := strings.CutPrefix(line, "event:"); ok {
			currentEventType = strings.TrimSpace(eventType)
			continue
		}

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)

		if data == "[DONE]" {
			emit(providers.StreamEvent{Type: providers.EventMessageStop})
			return
		}

		ev, ok := parseStreamEvent(currentEventType, []byte(data))
		if !ok {
			continue
		}
		if !emit(ev) {
			return
		}
		if ev.Type == providers.EventMessageStop {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		emit(providers.StreamEvent{Type: providers.EventError, Message: err.Error()})
	}
}

// sseRecord covers the union of fields the Messages API puts in data
// payloads; each event type reads its own subset.
type sseRecord struct {
	Message struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"message"`
	Index        int                     `json:"index"`
	ContentBlock *providers.ContentBlock `json:"content_block"`
	Delta        json.RawMessage         `json:"delta"`
	Usage        *providers.Usage        `json:"usage"`
	Error        struct {
		Message string `json:"message"`
	} `json:"error"`
}

// parseStreamEvent turns one typed data payload into a StreamEvent.
// Unrecognized event types are dropped for forward compatibility.
func parseStreamEvent(eventType string, data []byte) (providers.StreamEvent, bool) {
	var record sseRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return providers.StreamEvent{}, false
	}

	switch eventType {
	case "message_start":
		return providers.StreamEvent{
			Type:  providers.EventMessageStart,
			ID:    record.Message.ID,
			Model: record.Message.Model,
		}, true

	case "content_block_start":
		block := record.ContentBlock
		if block == nil {
			block = &providers.ContentBlock{Type: providers.BlockText}
		}
		return providers.StreamEvent{
			Type:         providers.EventContentBlockStart,
			Index:        record.Index,
			ContentBlock: block,
		}, true

	case "content_block_delta":
		var delta providers.ContentDelta
		if err := json.Unmarshal(record.Delta, &delta); err != nil {
			return providers.StreamEvent{}, false
		}
		return providers.StreamEvent{
			Type:  providers.EventContentBlockDelta,
			Index: record.Index,
			Delta: &delta,
		}, true

	case "content_block_stop":
		return providers.StreamEvent{
			Type:  providers.EventContentBlockStop,
			Index: record.Index,
		}, true

	case "message_delta":
		var delta struct {
			StopReason string `json:"stop_reason"`
		}
		if len(record.Delta) > 0 {
			json.Unmarshal(record.Delta, &delta)
		}
		return providers.StreamEvent{
			Type:       providers.EventMessageDelta,
			StopReason: delta.StopReason,
			Usage:      record.Usage,
		}, true

	case "message_stop":
		return providers.StreamEvent{Type: providers.EventMessageStop}, true

	case "ping":
		return providers.StreamEvent{Type: providers.EventPing}, true

	case "error":
		msg := record.Error.Message
		if msg == "" {
			msg = "unknown error"
		}
		return providers.StreamEvent{Type: providers.EventError, Message: msg}, true

	default:
		return providers.StreamEvent{}, false
	}
}
