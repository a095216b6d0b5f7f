package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/clawgate/clawgate/pkg/logger"
	"github.com/clawgate/clawgate/pkg/providers"
)

type ToolCategory string

const (
	CategoryBuiltin ToolCategory = "builtin"
	CategorySkill   ToolCategory = "skill"
	CategoryPlugin  ToolCategory = "plugin"
	CategoryCustom  ToolCategory = "custom"
)

type RegisteredTool struct {
	Tool     Tool
	Category ToolCategory
}

// Registry stores the available tools and the deny/allow policy. Listing
// filters through the policy; Get and Execute do not re-check it, that is
// the caller's responsibility at the boundary where tools are exposed.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]RegisteredTool
	deny  []string
	allow []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]RegisteredTool)}
}

// NewRegistryWithPolicy creates a registry with deny/allow lists taken
// from configuration.
func NewRegistryWithPolicy(deny, allow []string) *Registry {
	return &Registry{
		tools: make(map[string]RegisteredTool),
		deny:  deny,
		allow: allow,
	}
}

func (r *Registry) Register(tool Tool, category ToolCategory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = RegisteredTool{Tool: tool, Category: category}
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.Tool, true
}

// IsAllowed applies the policy: a denied name is blocked unless it is also
// explicitly on the allow list. The allow list overrides deny for that
// exact name only, nothing else.
func (r *Registry) IsAllowed(name string) bool {
	for _, d := range r.deny {
		if d == name {
			for _, a := range r.allow {
				if a == name {
					return true
				}
			}
			return false
		}
	}
	return true
}

// Definitions returns the policy-filtered tool definitions offered to the
// model, sorted by name for stable output.
func (r *Registry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for name, rt := range r.tools {
		if !r.IsAllowed(name) {
			continue
		}
		defs = append(defs, providers.ToolDefinition{
			Name:        name,
			Description: rt.Tool.Description(),
			InputSchema: rt.Tool.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name. Unknown names become error results rather
// than Go errors so the model sees them as failed tool calls.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *ToolResult {
	tool, ok := r.Get(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("Unknown tool: %s", name))
	}

	logger.InfoCF("tool", "executing tool", map[string]any{
		"tool": name,
	})

	result := tool.Execute(ctx, args)
	if result == nil {
		return ErrorResult(fmt.Sprintf("tool %s returned no result", name))
	}
	if result.IsError {
		logger.WarnCF("tool", "tool failed", map[string]any{
			"tool":  name,
			"error": result.Content,
		})
	}
	return result
}

// RegisterBuiltins installs the builtin tool set against the given
// workspace root.
func (r *Registry) RegisterBuiltins(workspace string, execTimeoutSecs int) {
	r.Register(NewReadTool(workspace), CategoryBuiltin)
	r.Register(NewWriteTool(workspace), CategoryBuiltin)
	r.Register(NewEditTool(workspace), CategoryBuiltin)
	r.Register(NewExecTool(workspace, execTimeoutSecs), CategoryBuiltin)
}
