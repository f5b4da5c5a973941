package tools

import (
	"fmt"

	"github.com/acolita/shellsession-mcp/internal/editor"
	"github.com/acolita/shellsession-mcp/internal/toolkit"
)

// LocalEditor exposes editor.Local's view/str_replace/create commands as
// the "str_replace_editor" tool, resolving paths on the host filesystem.
type LocalEditor struct {
	editor *editor.Local
}

// NewLocalEditor constructs a LocalEditor rooted at baseDir.
func NewLocalEditor(baseDir string) *LocalEditor {
	return &LocalEditor{editor: editor.NewLocal(baseDir)}
}

func (t *LocalEditor) Schema() toolkit.Schema {
	return toolkit.Schema{
		Name:        "str_replace_editor",
		Description: "View, create, and edit files on the host filesystem by exact string replacement.",
		InputSchema: toolkit.InputSchema{
			Type: "object",
			Properties: map[string]any{
				"command":     map[string]any{"type": "string", "description": "One of: view, str_replace, create"},
				"path":        map[string]any{"type": "string", "description": "Path to the file or directory"},
				"view_range":  map[string]any{"type": "array", "description": "Optional [start, end] 1-based inclusive line range for view; end=-1 means end of file"},
				"old_str":     map[string]any{"type": "string", "description": "Exact text to replace (str_replace)"},
				"new_str":     map[string]any{"type": "string", "description": "Replacement text (str_replace)"},
				"replace_all": map[string]any{"type": "boolean", "description": "Replace every occurrence instead of requiring a unique match"},
				"file_text":   map[string]any{"type": "string", "description": "Content for a newly created file (create)"},
			},
			Required: []string{"command", "path"},
		},
	}
}

func (t *LocalEditor) Execute(params map[string]any) toolkit.Envelope {
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
		return toEnvelope(t.editor.View(path, viewRange))
	case "str_replace":
		oldStr, ok := params["old_str"].(string)
		if !ok {
			return toolkit.Text("Missing required parameter: old_str", true)
		}
		newStr, _ := params["new_str"].(string)
		return toEnvelope(t.editor.StrReplace(path, oldStr, newStr, boolParam(params, "replace_all")))
	case "create":
		fileText, ok := params["file_text"].(string)
		if !ok {
			return toolkit.Text("Missing required parameter: file_text", true)
		}
		return toEnvelope(t.editor.Create(path, fileText))
	default:
		return toolkit.Text(fmt.Sprintf("Unknown command: %s", command), true)
	}
}

func toEnvelope(r editor.Result) toolkit.Envelope {
	return toolkit.Text(r.Text, r.IsError)
}
