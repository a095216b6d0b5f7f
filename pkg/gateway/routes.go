package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/version"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorCF("gateway", "failed to encode response", map[string]any{
			"error": err.Error(),
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": message},
	})
}

// buildMux wires the HTTP surface behind the auth middleware. The
// WebSocket endpoint does its own auth check before upgrading.
func (s *State) buildMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/config", s.handleConfig)
	mux.HandleFunc("GET /v1/sessions", s.handleSessions)
	mux.HandleFunc("GET /v1/tools", s.handleTools)
	mux.HandleFunc("POST /v1/chat/completions", s.rateLimited(s.handleChatCompletions))
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s.authMiddleware(mux)
}

func (s *State) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"engine":  version.Engine,
	})
}

func (s *State) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"version":        version.Version,
		"engine":         version.Engine,
		"uptime_seconds": s.UptimeSeconds(),
		"sessions":       s.Sessions.Count(),
		"tools":          len(s.Registry.Definitions()),
		"channels":       s.Channels.Names(),
		"model":          s.Config.LLM.Model,
		"workspace":      s.Config.Agent.Workspace,
	})
}

func (s *State) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config.Sanitized())
}

func (s *State) handleSessions(w http.ResponseWriter, r *http.Request) {
	keys := s.Sessions.ListKeys()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(keys),
		"sessions": keys,
	})
}

func (s *State) handleTools(w http.ResponseWriter, r *http.Request) {
	defs := s.Registry.Definitions()
	list := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		list = append(list, map[string]any{
			"name":        d.Name,
			"description": d.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(list),
		"tools": list,
	})
}

// rateLimited applies the configured per-minute request budget. A zero
// budget disables limiting.
func (s *State) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	rpm := s.Config.Gateway.RequestsPerMinute
	if rpm <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// handleChatCompletions accepts a generic model-plus-messages request and
// returns a synthesized non-streaming acknowledgement with one assistant
// choice.
func (s *State) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	model, _ := body["model"].(string)
	if model == "" {
		model = s.Config.LLM.Model
	}
	messages, ok := body["messages"].([]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "messages must be an array")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     fmt.Sprintf("chatcmpl-%s", uuid.NewString()),
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": fmt.Sprintf("%s received %d messages for model %s", version.Engine, len(messages), model),
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     0,
			"completion_tokens": 0,
			"total_tokens":      0,
		},
	})
}
