package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const defaultExecTimeout = 30

// ExecTool runs shell commands through bash -c with a bounded runtime.
// Timeout expiry is reported as its own error, distinct from a non-zero
// exit code.
type ExecTool struct {
	workspace          string
	defaultTimeoutSecs int
}

func NewExecTool(workspace string, defaultTimeoutSecs int) *ExecTool {
	if defaultTimeoutSecs <= 0 {
		defaultTimeoutSecs = defaultExecTimeout
	}
	return &ExecTool{workspace: workspace, defaultTimeoutSecs: defaultTimeoutSecs}
}

func (t *ExecTool) Name() string {
	return "exec"
}

func (t *ExecTool) Description() string {
	return "Execute shell commands."
}

func (t *ExecTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to execute",
			},
			"workdir": map[string]any{
				"type":        "string",
				"description": "Working directory",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Timeout in seconds",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecTool) Execute(ctx context.Context, args map[string]any) *ToolResult {
	command := stringArg(args, "command")
	if command == "" {
		return ErrorResult("command is required")
	}

	workdir := stringArg(args, "workdir")
	if workdir == "" {
		workdir = t.workspace
	}
	timeoutSecs := intArg(args, "timeout", t.defaultTimeoutSecs)

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "bash", "-c", command)
	cmd.Dir = workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if execCtx.Err() == context.DeadlineExceeded {
		return ErrorResult(fmt.Sprintf("Command timed out after %ds", timeoutSecs))
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return ErrorResult(fmt.Sprintf("Error executing command: %v", err))
		}
	}

	out := stdout.String()
	errOut := stderr.String()
	var content string
	switch {
	case errOut == "":
		content = out
	case out == "":
		content = errOut
	default:
		content = out + "\n" + errOut
	}

	return &ToolResult{
		Content: content,
		IsError: exitCode != 0,
		Metadata: map[string]any{
			"exit_code": exitCode,
		},
	}
}
