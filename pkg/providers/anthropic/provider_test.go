package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawgate/clawgate/pkg/providers"
)

func TestBuildRequestBody(t *testing.T) {
	temp := 0.7
	req := &providers.CompletionRequest{
		Model:  "claude-sonnet-4-20250514",
		System: "You are helpful.",
		Messages: []providers.Message{
			providers.UserMessage("Hello"),
		},
		MaxTokens:   1024,
		Temperature: &temp,
	}

	body := buildRequestBody(req)
	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
	assert.Equal(t, "You are helpful.", body["system"])
	assert.Equal(t, 1024, body["max_tokens"])
	assert.Equal(t, 0.7, body["temperature"])

	messages := body["messages"].([]map[string]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])
	assert.Equal(t, "Hello", messages[0]["content"])
}

func TestBuildRequestBodySystemMessagesLifted(t *testing.T) {
	req := &providers.CompletionRequest{
		Model: "m",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: providers.TextContent("be terse")},
			providers.UserMessage("hi"),
		},
		MaxTokens: 100,
	}

	body := buildRequestBody(req)
	assert.Equal(t, "be terse", body["system"])

	// System messages never appear in the message list.
	messages := body["messages"].([]map[string]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])
}

func TestBuildRequestBodyToolRoleBecomesUser(t *testing.T) {
	req := &providers.CompletionRequest{
		Model: "m",
		Messages: []providers.Message{
			{
				Role:    providers.RoleTool,
				Content: providers.BlocksContent(providers.ToolResultBlock("tu_1", "file contents", false)),
			},
		},
		MaxTokens: 100,
	}

	body := buildRequestBody(req)
	messages := body["messages"].([]map[string]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])

	blocks := messages[0]["content"].([]providers.ContentBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, providers.BlockToolResult, blocks[0].Type)
	assert.Equal(t, "tu_1", blocks[0].ToolUseID)
}

func TestCompleteParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_123",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "text", "text": "Hello!"},
				{"type": "tool_use", "id": "tu_789", "name": "Read", "input": {"file_path": "/tmp/x"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5, "cache_read_input_tokens": 3}
		}`)
	}))
	defer server.Close()

	p := NewProviderWithBaseURL("test-key", server.URL)
	resp, err := p.Complete(context.Background(), &providers.CompletionRequest{
		Model:     "claude-sonnet-4-20250514",
		Messages:  []providers.Message{providers.UserMessage("hi")},
		MaxTokens: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_123", resp.ID)
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.EqualValues(t, 10, resp.Usage.InputTokens)
	assert.EqualValues(t, 3, resp.Usage.CacheReadInputTokens)

	require.Len(t, resp.Content, 2)
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "tu_789", uses[0].ID)
	assert.Equal(t, "Read", uses[0].Name)

	var input map[string]any
	require.NoError(t, json.Unmarshal(uses[0].Input, &input))
	assert.Equal(t, "/tmp/x", input["file_path"])
}

func TestCompleteStatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		wantKind   providers.ErrorKind
		wantStatus int
		wantRetry  int64
	}{
		{name: "unauthorized", status: 401, wantKind: providers.ErrAuth},
		{name: "forbidden", status: 403, wantKind: providers.ErrAuth},
		{name: "rate limited with header", status: 429, headers: map[string]string{"Retry-After": "5"}, wantKind: providers.ErrRateLimited, wantRetry: 5000},
		{name: "rate limited default", status: 429, wantKind: providers.ErrRateLimited, wantRetry: 60000},
		{name: "server error", status: 500, wantKind: providers.ErrAPI, wantStatus: 500},
		{name: "bad request", status: 400, wantKind: providers.ErrAPI, wantStatus: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			defer server.Close()

			p := NewProviderWithBaseURL("k", server.URL)
			_, err := p.Complete(context.Background(), &providers.CompletionRequest{
				Model:     "m",
				Messages:  []providers.Message{providers.UserMessage("hi")},
				MaxTokens: 10,
			})
			require.Error(t, err)

			var provErr *providers.Error
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, tt.wantKind, provErr.Kind)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, provErr.Status)
			}
			if tt.wantRetry != 0 {
				assert.Equal(t, tt.wantRetry, provErr.RetryAfterMS)
			}
		})
	}
}

func sseBody(records ...[2]string) string {
	var out string
	for _, r := range records {
		out += "event: " + r[0] + "\n"
		out += "data: " + r[1] + "\n\n"
	}
	return out
}

func TestStreamTranslation(t *testing.T) {
	body := sseBody(
		[2]string{"message_start", `{"message":{"id":"msg_1","model":"m"}}`},
		[2]string{"content_block_start", `{"index":0,"content_block":{"type":"text","text":""}}`},
		[2]string{"content_block_delta", `{"index":0,"delta":{"type":"text_delta","text":"Hel"}}`},
		[2]string{"content_block_delta", `{"index":0,"delta":{"type":"text_delta","text":"lo"}}`},
		[2]string{"content_block_delta", `{"index":0,"delta":{"type":"text_delta","text":"!"}}`},
		[2]string{"content_block_stop", `{"index":0}`},
		[2]string{"message_delta", `{"delta":{"stop_reason":"end_turn"},"usage":{"input_tokens":7,"output_tokens":3}}`},
		[2]string{"message_stop", `{}`},
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	p := NewProviderWithBaseURL("k", server.URL)
	events, err := p.Stream(context.Background(), &providers.CompletionRequest{
		Model:     "m",
		Messages:  []providers.Message{providers.UserMessage("hi")},
		MaxTokens: 10,
	})
	require.NoError(t, err)

	var got []providers.StreamEvent
	for ev := range events {
		got = append(got, ev)
	}

	wantTypes := []providers.StreamEventType{
		providers.EventMessageStart,
		providers.EventContentBlockStart,
		providers.EventContentBlockDelta,
		providers.EventContentBlockDelta,
		providers.EventContentBlockDelta,
		providers.EventContentBlockStop,
		providers.EventMessageDelta,
		providers.EventMessageStop,
	}
	require.Len(t, got, len(wantTypes))
	for i, want := range wantTypes {
		assert.Equal(t, want, got[i].Type, "event %d", i)
	}

	assert.Equal(t, "msg_1", got[0].ID)
	assert.Equal(t, 0, got[2].Index)
	assert.Equal(t, "Hel", got[2].Delta.Text)
	assert.Equal(t, "end_turn", got[6].StopReason)
	require.NotNil(t, got[6].Usage)
	assert.EqualValues(t, 7, got[6].Usage.InputTokens)
}

func TestStreamDoneTerminates(t *testing.T) {
	body := sseBody(
		[2]string{"message_start", `{"message":{"id":"msg_1","model":"m"}}`},
	) + "data: [DONE]\n\n" + sseBody(
		// Anything after [DONE] must never be delivered.
		[2]string{"content_block_start", `{"index":0,"content_block":{"type":"text"}}`},
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	p := NewProviderWithBaseURL("k", server.URL)
	events, err := p.Stream(context.Background(), &providers.CompletionRequest{
		Model:     "m",
		Messages:  []providers.Message{providers.UserMessage("hi")},
		MaxTokens: 10,
	})
	require.NoError(t, err)

	var got []providers.StreamEvent
	for ev := range events {
		got = append(got, ev)
	}

	require.Len(t, got, 2)
	assert.Equal(t, providers.EventMessageStart, got[0].Type)
	assert.Equal(t, providers.EventMessageStop, got[1].Type)
}

func TestStreamUnknownEventsDropped(t *testing.T) {
	body := sseBody(
		[2]string{"some_future_event", `{"index":9}`},
		[2]string{"message_stop", `{}`},
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	p := NewProviderWithBaseURL("k", server.URL)
	events, err := p.Stream(context.Background(), &providers.CompletionRequest{
		Model:     "m",
		Messages:  []providers.Message{providers.UserMessage("hi")},
		MaxTokens: 10,
	})
	require.NoError(t, err)

	var got []providers.StreamEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, providers.EventMessageStop, got[0].Type)
}

func TestStreamConsumerCancellation(t *testing.T) {
	// A producer whose consumer goes away must stop without error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 10_000; i++ {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"x\"}}\n\n")
			flusher.Flush()
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewProviderWithBaseURL("k", server.URL)
	events, err := p.Stream(ctx, &providers.CompletionRequest{
		Model:     "m",
		Messages:  []providers.Message{providers.UserMessage("hi")},
		MaxTokens: 10,
	})
	require.NoError(t, err)

	// Read a few events, then walk away.
	<-events
	<-events
	cancel()

	// The channel must close shortly after cancellation.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream channel did not close after consumer cancellation")
		}
	}
}

func TestStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewProviderWithBaseURL("k", server.URL)
	_, err := p.Stream(context.Background(), &providers.CompletionRequest{
		Model:     "m",
		Messages:  []providers.Message{providers.UserMessage("hi")},
		MaxTokens: 10,
	})
	require.Error(t, err)

	var provErr *providers.Error
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, providers.ErrRateLimited, provErr.Kind)
}

func TestParseStreamEventErrorPayload(t *testing.T) {
	ev, ok := parseStreamEvent("error", []byte(`{"error":{"message":"overloaded"}}`))
	require.True(t, ok)
	assert.Equal(t, providers.EventError, ev.Type)
	assert.Equal(t, "overloaded", ev.Message)
}
