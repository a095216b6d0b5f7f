// Package agent runs the conversation turn: session lookup, provider
// calls, and the bounded tool execution loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clawgate/clawgate/pkg/config"
	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/providers"
	"github.com/clawgate/clawgate/pkg/session"
	"github.com/clawgate/clawgate/pkg/tools"
)

type Agent struct {
	id            string
	provider      providers.Provider
	sessions      *session.Manager
	registry      *tools.Registry
	model         string
	systemPrompt  string
	maxTokens     int
	maxIterations int
}

func New(cfg *config.Config, provider providers.Provider, sessions *session.Manager, registry *tools.Registry) *Agent {
	maxIter := cfg.Agent.MaxToolIterations
	if maxIter <= 0 {
		maxIter = 10
	}
	return &Agent{
		id:            cfg.Agent.ID,
		provider:      provider,
		sessions:      sessions,
		registry:      registry,
		model:         cfg.LLM.Model,
		systemPrompt:  cfg.Agent.SystemPrompt,
		maxTokens:     cfg.LLM.MaxTokens,
		maxIterations: maxIter,
	}
}

func (a *Agent) ID() string {
	return a.id
}

// ProcessMessage runs one full turn for an inbound message: appends it to
// the session, iterates provider calls and tool executions until the model
// stops requesting tools or the iteration bound is hit, and returns the
// final assistant text.
//
// The store hands out copies, so the turn mutates its own session and
// writes it back when done.
func (a *Agent) ProcessMessage(ctx context.Context, channel, chatID, content string) (string, error) {
	key := session.BuildSessionKey(a.id, channel, chatID)
	sess := a.sessions.GetOrCreate(key, a.id, channel)
	defer a.sessions.Update(sess)

	if sess.SystemPrompt == "" {
		sess.SystemPrompt = a.systemPrompt
	}
	sess.AddUserMessage(content)

	defs := a.registry.Definitions()

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		logger.DebugCF("agent", "provider call", map[string]any{
			"iteration": iteration,
			"session":   key,
		})

		resp, err := a.provider.Complete(ctx, &providers.CompletionRequest{
			Model:     a.model,
			System:    sess.SystemPrompt,
			Messages:  sess.Messages,
			Tools:     defs,
			MaxTokens: a.maxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("provider call failed: %w", err)
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			text := resp.TextContent()
			sess.AddAssistantMessage(text)
			return text, nil
		}

		sess.AddAssistantBlocks(resp.Content)
		for _, use := range uses {
			result := a.runTool(ctx, use)
			sess.AddToolResult(use.ID, result.Content, result.IsError)
		}
	}

	logger.WarnCF("agent", "tool iteration limit reached", map[string]any{
		"session": key,
		"max":     a.maxIterations,
	})
	text := sess.LastAssistantText()
	if text == "" {
		text = "Reached the tool iteration limit before producing a final answer."
	}
	return text, nil
}

// runTool enforces the deny/allow policy at the exposure boundary, then
// dispatches to the registry.
func (a *Agent) runTool(ctx context.Context, use providers.ContentBlock) *tools.ToolResult {
	if !a.registry.IsAllowed(use.Name) {
		return tools.ErrorResult(fmt.Sprintf("tool %s is blocked by policy", use.Name))
	}

	args := map[string]any{}
	if len(use.Input) > 0 {
		if err := json.Unmarshal(use.Input, &args); err != nil {
			return tools.ErrorResult(fmt.Sprintf("invalid tool input: %v", err))
		}
	}
	return a.registry.Execute(ctx, use.Name, args)
}
