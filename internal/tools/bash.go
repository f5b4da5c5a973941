// Package tools implements the tool-facing surface of the server: the
// stateless bash tool, the non-sessioned editor, and the four tools that
// wrap the session manager.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/acolita/shellsession-mcp/internal/toolkit"
)

const bashMaxOutputBytes = 30720

// Bash runs one command per invocation in its own process — no state is
// shared between calls.
type Bash struct {
	Shell          string
	DefaultTimeout time.Duration
}

// NewBash constructs a Bash tool that runs commands with shell.
func NewBash(shell string) *Bash {
	return &Bash{Shell: shell, DefaultTimeout: 30 * time.Second}
}

func (t *Bash) Schema() toolkit.Schema {
	return toolkit.Schema{
		Name:        "bash",
		Description: "Run a shell command and return its output. Each call runs in a fresh process; no state persists between calls.",
		InputSchema: toolkit.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"command": map[string]any{"type": "string", "description": "The shell command to run"},
				"timeout": map[string]any{"type": "number", "description": "Timeout in seconds (default 30)"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *Bash) Execute(params map[string]any) toolkit.Envelope {
	command, _ := params["command"].(string)
	if command == "" {
		return toolkit.Text("Missing required parameter: command", true)
	}

	timeout := t.DefaultTimeout
	seconds := 0
	if v, ok := params["timeout"].(float64); ok && v > 0 {
		seconds = int(v)
		timeout = time.Duration(v) * time.Second
	} else {
		seconds = int(t.DefaultTimeout.Seconds())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return toolkit.Text(fmt.Sprintf("Command timed out after %d seconds", seconds), true)
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return toolkit.Text(fmt.Sprintf("Failed to execute command: %s", err.Error()), true)
		}
	}

	return toolkit.Text(formatBashOutput(stdout.String(), stderr.String(), exitCode), false)
}

func formatBashOutput(stdout, stderr string, exitCode int) string {
	var body strings.Builder
	if stdout != "" {
		body.WriteString(stdout)
	}
	if exitCode != 0 {
		if body.Len() > 0 && !strings.HasSuffix(body.String(), "\n") {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "Exit code: %d", exitCode)
	}
	if stderr != "" {
		body.WriteString("\n--- stderr ---\n")
		body.WriteString(stderr)
	}

	out := body.String()
	if out == "" {
		return "<system>Tool ran without output or errors</system>"
	}
	if len(out) > bashMaxOutputBytes {
		out = out[:bashMaxOutputBytes] + fmt.Sprintf("\n... (output truncated at %d bytes)", bashMaxOutputBytes)
	}
	return out
}
