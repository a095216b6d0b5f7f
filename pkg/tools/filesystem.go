package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultReadLimit = 2000

type ReadTool struct {
	workspace string
}

func NewReadTool(workspace string) *ReadTool {
	return &ReadTool{workspace: workspace}
}

func (t *ReadTool) Name() string {
	return "Read"
}

func (t *ReadTool) Description() string {
	return "Read the contents of a file."
}

func (t *ReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read",
			},
			"offset": map[string]any{
				"type":        "number",
				"description": "Line number to start reading from (1-indexed)",
			},
			"limit": map[string]any{
				"type":        "number",
				"description": "Maximum number of lines to read",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any) *ToolResult {
	filePath := stringArg(args, "file_path")
	if filePath == "" {
		return ErrorResult("file_path is required")
	}

	resolved := resolvePath(filePath, t.workspace)
	offset := intArg(args, "offset", 1)
	limit := intArg(args, "limit", defaultReadLimit)

	data, err := os.ReadFile(resolved)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error reading %s: %v", filePath, err))
	}

	lines := splitLines(string(data))
	start := offset - 1
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}

	return &ToolResult{
		Content: strings.Join(lines[start:end], "\n"),
		Metadata: map[string]any{
			"total_lines":    len(lines),
			"returned_lines": end - start,
		},
	}
}

// splitLines splits on newlines without producing a trailing empty line
// for newline-terminated files.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

type WriteTool struct {
	workspace string
}

func NewWriteTool(workspace string) *WriteTool {
	return &WriteTool{workspace: workspace}
}

func (t *WriteTool) Name() string {
	return "Write"
}

func (t *WriteTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, overwrites if it does."
}

func (t *WriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteTool) Execute(ctx context.Context, args map[string]any) *ToolResult {
	filePath := stringArg(args, "file_path")
	if filePath == "" {
		return ErrorResult("file_path is required")
	}
	content := stringArg(args, "content")

	resolved := resolvePath(filePath, t.workspace)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("Error creating directories: %v", err))
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("Error writing %s: %v", filePath, err))
	}

	return NewToolResult(fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), filePath))
}

type EditTool struct {
	workspace string
}

func NewEditTool(workspace string) *EditTool {
	return &EditTool{workspace: workspace}
}

func (t *EditTool) Name() string {
	return "Edit"
}

func (t *EditTool) Description() string {
	return "Edit a file by replacing exact text."
}

func (t *EditTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to edit",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "Exact text to find and replace",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "New text to replace with",
			},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	}
}

// Execute replaces the first exact occurrence of old_string. No fuzzy
// matching: an absent old_string fails loudly and the file is untouched.
func (t *EditTool) Execute(ctx context.Context, args map[string]any) *ToolResult {
	filePath := stringArg(args, "file_path")
	oldString := stringArg(args, "old_string")
	newString := stringArg(args, "new_string")

	if filePath == "" || oldString == "" {
		return ErrorResult("file_path and old_string are required")
	}

	resolved := resolvePath(filePath, t.workspace)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error reading %s: %v", filePath, err))
	}

	content := string(data)
	if !strings.Contains(content, oldString) {
		return ErrorResult("old_string not found in file")
	}

	updated := strings.Replace(content, oldString, newString, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("Error writing %s: %v", filePath, err))
	}

	return NewToolResult(fmt.Sprintf("Successfully edited %s", filePath))
}
