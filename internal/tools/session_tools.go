package tools

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/acolita/shellsession-mcp/internal/session"
	"github.com/acolita/shellsession-mcp/internal/toolkit"
)

// SessionOps is the slice of *session.Manager the four session lifecycle
// tools depend on.
type SessionOps interface {
	Start(params map[string]any) (*session.Session, error)
	Exec(id, command string, timeoutMS int) session.ExecResult
	Stop(id string) bool
	List() []session.Info
	Get(id string) (*session.Session, bool)
}

// StartSchema lets the embedder extend the start tool's input schema with
// factory-specific parameters (e.g. a workdir or user field) beyond the
// bare set the tool itself understands.
type StartSchema struct {
	ExtraProperties map[string]any
	ExtraRequired   []string
}

// SessionStart starts a new persistent shell session.
type SessionStart struct {
	ops    SessionOps
	name   string
	extras StartSchema
}

func NewSessionStart(prefix string, ops SessionOps, extras StartSchema) *SessionStart {
	return &SessionStart{ops: ops, name: prefix + "_start", extras: extras}
}

func (t *SessionStart) Schema() toolkit.Schema {
	props := map[string]any{}
	for k, v := range t.extras.ExtraProperties {
		props[k] = v
	}
	return toolkit.Schema{
		Name:        t.name,
		Description: "Start a new persistent interactive shell session and return its session_id.",
		InputSchema: toolkit.InputSchema{
			Type:       "object",
			Properties: props,
			Required:   t.extras.ExtraRequired,
		},
	}
}

func (t *SessionStart) Execute(params map[string]any) toolkit.Envelope {
	sess, err := t.ops.Start(params)
	if err != nil {
		return toolkit.Text(fmt.Sprintf("Failed to start session: %s", err.Error()), true)
	}

	var meta strings.Builder
	if len(sess.Metadata) > 0 {
		keys := make([]string, 0, len(sess.Metadata))
		for k := range sess.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&meta, "\n%s: %s", k, sess.Metadata[k])
		}
	}
	return toolkit.Text(fmt.Sprintf("Session started: %s%s", sess.ID, meta.String()), false)
}

// SessionExec runs a command in an existing session, preserving shell state
// (cwd, exports, background jobs) across calls.
type SessionExec struct {
	ops              SessionOps
	name             string
	defaultTimeoutMS int
	maxTimeoutMS     int
}

func NewSessionExec(prefix string, ops SessionOps, defaultTimeoutMS, maxTimeoutMS int) *SessionExec {
	return &SessionExec{ops: ops, name: prefix + "_exec", defaultTimeoutMS: defaultTimeoutMS, maxTimeoutMS: maxTimeoutMS}
}

func (t *SessionExec) Schema() toolkit.Schema {
	return toolkit.Schema{
		Name:        t.name,
		Description: "Run a command inside an existing session. State from prior calls (cwd, exports, background jobs) persists.",
		InputSchema: toolkit.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id":  map[string]any{"type": "string", "description": "The session to run the command in"},
				"command":     map[string]any{"type": "string", "description": "The shell command to run"},
				"timeout":     map[string]any{"type": "number", "description": fmt.Sprintf("Timeout in milliseconds (default %d, max %d)", t.defaultTimeoutMS, t.maxTimeoutMS)},
				"description": map[string]any{"type": "string", "description": "Optional human-readable note about what this command does"},
			},
			Required: []string{"session_id", "command"},
		},
	}
}

func (t *SessionExec) Execute(params map[string]any) toolkit.Envelope {
	id := stringParam(params, "session_id")
	if id == "" {
		return toolkit.Text("Missing required parameter: session_id", true)
	}
	command := stringParam(params, "command")
	if command == "" {
		return toolkit.Text("Missing required parameter: command", true)
	}
	if _, ok := t.ops.Get(id); !ok {
		return toolkit.Text(fmt.Sprintf("Unknown session_id: %s", id), true)
	}

	timeoutMS := 0
	if v, ok := params["timeout"].(float64); ok && v > 0 {
		timeoutMS = int(v)
	}

	res := t.ops.Exec(id, command, timeoutMS)

	if res.ProcessDied {
		return toolkit.Text(joinSuffix(res.Output, "[Process exited]"), true)
	}
	if res.TimedOut {
		effective := timeoutMS
		if effective <= 0 {
			effective = t.defaultTimeoutMS
		}
		if effective > t.maxTimeoutMS {
			effective = t.maxTimeoutMS
		}
		return toolkit.Text(joinSuffix(res.Output, fmt.Sprintf("[Command timed out after %dms]", effective)), true)
	}
	if res.ExitCode != 0 {
		return toolkit.Text(joinSuffix(res.Output, fmt.Sprintf("[Exit code: %d]", res.ExitCode)), true)
	}
	return toolkit.Text(res.Output, false)
}

func joinSuffix(body, suffix string) string {
	if body == "" {
		return suffix
	}
	return body + "\n" + suffix
}

// SessionStop terminates a session, freeing its process and buffers.
type SessionStop struct {
	ops  SessionOps
	name string
}

func NewSessionStop(prefix string, ops SessionOps) *SessionStop {
	return &SessionStop{ops: ops, name: prefix + "_stop"}
}

func (t *SessionStop) Schema() toolkit.Schema {
	return toolkit.Schema{
		Name:        t.name,
		Description: "Stop a session, releasing its process and resources.",
		InputSchema: toolkit.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{"type": "string", "description": "The session to stop"},
			},
			Required: []string{"session_id"},
		},
	}
}

func (t *SessionStop) Execute(params map[string]any) toolkit.Envelope {
	id := stringParam(params, "session_id")
	if id == "" {
		return toolkit.Text("Missing required parameter: session_id", true)
	}
	if !t.ops.Stop(id) {
		return toolkit.Text(fmt.Sprintf("Unknown session_id: %s", id), true)
	}
	return toolkit.Text(fmt.Sprintf("Session stopped: %s", id), false)
}

// SessionList reports every currently registered session.
type SessionList struct {
	ops  SessionOps
	name string
}

func NewSessionList(prefix string, ops SessionOps) *SessionList {
	return &SessionList{ops: ops, name: prefix + "_list"}
}

func (t *SessionList) Schema() toolkit.Schema {
	return toolkit.Schema{
		Name:        t.name,
		Description: "List every currently registered session and its status.",
		InputSchema: toolkit.InputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}
}

func (t *SessionList) Execute(map[string]any) toolkit.Envelope {
	infos := t.ops.List()
	if len(infos) == 0 {
		return toolkit.Text("No active sessions.", false)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Created.Before(infos[j].Created) })

	var out strings.Builder
	for _, info := range infos {
		status := "running"
		if !info.Alive {
			status = "exited"
		}
		fmt.Fprintf(&out, "%s\t%s\tuptime=%s", info.ID, status, info.Uptime.Round(time.Second))
		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&out, "\t%s=%s", k, info.Metadata[k])
		}
		out.WriteString("\n")
	}
	return toolkit.Text(strings.TrimSuffix(out.String(), "\n"), false)
}
