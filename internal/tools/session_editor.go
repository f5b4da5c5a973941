package tools

import (
	"fmt"

	"github.com/acolita/shellsession-mcp/internal/editor"
	"github.com/acolita/shellsession-mcp/internal/session"
	"github.com/acolita/shellsession-mcp/internal/toolkit"
)

// sessionLookup is the slice of *session.Manager the sessioned editor tool
// needs to validate session_id before delegating to the editor.
type sessionLookup interface {
	Get(id string) (*session.Session, bool)
}

// SessionEditor exposes editor.Sessioned's commands as a tool that
// transfers file content through a session's own shell, so edits are
// atomic with respect to that session's view of the filesystem.
type SessionEditor struct {
	editor  *editor.Sessioned
	lookup  sessionLookup
	toolTag string
}

// NewSessionEditor constructs a SessionEditor named "<prefix>_editor".
func NewSessionEditor(prefix string, editorImpl *editor.Sessioned, lookup sessionLookup) *SessionEditor {
	return &SessionEditor{editor: editorImpl, lookup: lookup, toolTag: prefix + "_editor"}
}

func (t *SessionEditor) Schema() toolkit.Schema {
	return toolkit.Schema{
		Name:        t.toolTag,
		Description: "View, create, and edit files inside a running shell session, via base64 transfer through the session's own shell.",
		InputSchema: toolkit.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id":  map[string]any{"type": "string", "description": "The session to operate in"},
				"command":     map[string]any{"type": "string", "description": "One of: view, str_replace, create"},
				"path":        map[string]any{"type": "string", "description": "Absolute path inside the session"},
				"view_range":  map[string]any{"type": "array", "description": "Optional [start, end] 1-based inclusive line range for view; end=-1 means end of file"},
				"old_str":     map[string]any{"type": "string", "description": "Exact text to replace (str_replace)"},
				"new_str":     map[string]any{"type": "string", "description": "Replacement text (str_replace)"},
				"replace_all": map[string]any{"type": "boolean", "description": "Replace every occurrence instead of requiring a unique match"},
				"file_text":   map[string]any{"type": "string", "description": "Content for a newly created file (create)"},
			},
			Required: []string{"session_id", "command", "path"},
		},
	}
}

func (t *SessionEditor) Execute(params map[string]any) toolkit.Envelope {
	sessionID := stringParam(params, "session_id")
	if sessionID == "" {
		return toolkit.Text("Missing required parameter: session_id", true)
	}
	if _, ok := t.lookup.Get(sessionID); !ok {
		return toolkit.Text(fmt.Sprintf("Unknown session_id: %s", sessionID), true)
	}

	command := stringParam(params, "command")
	path := stringParam(params, "path")
	if path == "" {
		return toolkit.Text("Missing required parameter: path", true)
	}

	switch command {
	case "view":
		viewRange, err := parseViewRange(params)
		if err != nil {
			return toolkit.Text(err.Error(), true)
		}
		return toEnvelope(t.editor.View(sessionID, path, viewRange))
	case "str_replace":
		oldStr, ok := params["old_str"].(string)
		if !ok {
			return toolkit.Text("Missing required parameter: old_str", true)
		}
		newStr, _ := params["new_str"].(string)
		return toEnvelope(t.editor.StrReplace(sessionID, path, oldStr, newStr, boolParam(params, "replace_all")))
	case "create":
		fileText, ok := params["file_text"].(string)
		if !ok {
			return toolkit.Text("Missing required parameter: file_text", true)
		}
		return toEnvelope(t.editor.Create(sessionID, path, fileText))
	default:
		return toolkit.Text(fmt.Sprintf("Unknown command: %s", command), true)
	}
}
