// Package tools implements the capability registry and the builtin tools
// exposed to the model: windowed file read, write, exact-string edit, and
// shell execution, all resolved against a workspace root.
package tools

import (
	"context"
	"path/filepath"
)

// Tool is one callable capability. Execute never panics; every failure is
// reported through ToolResult.IsError.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *ToolResult
}

type ToolResult struct {
	Content  string         `json:"content"`
	IsError  bool           `json:"is_error"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewToolResult(content string) *ToolResult {
	return &ToolResult{Content: content}
}

func ErrorResult(message string) *ToolResult {
	return &ToolResult{Content: message, IsError: true}
}

// resolvePath resolves a tool path argument against the workspace root.
// Absolute paths pass through unchanged. No traversal sanitization beyond
// this; callers restrict exposure through the registry policy.
func resolvePath(path, workspace string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg reads a numeric argument. JSON decoding delivers numbers as
// float64, so both forms are accepted.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
