// Package rpc implements the JSON-RPC 2.0 method dispatch shared by the
// stdio and Unix-socket transports: parse a line, route by method, attach
// id/jsonrpc, serialize errors.
package rpc

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/acolita/shellsession-mcp/internal/toolkit"
)

// Error codes as assigned by the JSON-RPC 2.0 spec and this server's use of
// it.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error is the JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ServerInfo is echoed back from initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Dispatcher routes decoded JSON-RPC requests to the tool registry.
type Dispatcher struct {
	registry     *toolkit.Registry
	aliases      map[string]string
	serverInfo   ServerInfo
	instructions string
	logger       *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAlias registers a client-side tool name alias, e.g. mapping a
// vendor-specific tool name onto a local tool name.
func WithAlias(from, to string) Option {
	return func(d *Dispatcher) { d.aliases[from] = to }
}

// WithInstructions surfaces instructions at the top level of the initialize
// result.
func WithInstructions(instructions string) Option {
	return func(d *Dispatcher) { d.instructions = instructions }
}

// WithLogger sets the logger used for uncaught tool panics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher builds a Dispatcher serving registry's tools.
func NewDispatcher(registry *toolkit.Registry, serverInfo ServerInfo, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		aliases:    make(map[string]string),
		serverInfo: serverInfo,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one decoded request and always returns a response
// object, even for a notification (no "id" key) — callers that must honor
// JSON-RPC's "no response to notifications" rule check for the id key
// themselves; this keeps the dispatcher itself easy to exercise directly in
// tests.
func (d *Dispatcher) Dispatch(req map[string]any) map[string]any {
	resp := map[string]any{"jsonrpc": "2.0"}
	if id, ok := req["id"]; ok {
		resp["id"] = id
	}

	method, _ := req["method"].(string)
	params, _ := req["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}

	switch method {
	case "initialize":
		resp["result"] = d.initialize()
	case "tools/list":
		resp["result"] = map[string]any{"tools": d.registry.Schemas()}
	case "tools/call":
		result, rpcErr := d.toolsCall(params)
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
	case "ping":
		resp["result"] = map[string]any{}
	default:
		resp["error"] = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	}

	return resp
}

func (d *Dispatcher) initialize() map[string]any {
	result := map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]any{
			"name":    d.serverInfo.Name,
			"version": d.serverInfo.Version,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
	}
	if d.instructions != "" {
		result["instructions"] = d.instructions
	}
	return result
}

func (d *Dispatcher) toolsCall(params map[string]any) (toolkit.Envelope, *Error) {
	name, _ := params["name"].(string)
	if name == "" {
		return toolkit.Envelope{}, &Error{Code: CodeInvalidParams, Message: "Missing tool name"}
	}
	if alias, ok := d.aliases[name]; ok {
		name = alias
	}

	tool, ok := d.registry.Get(name)
	if !ok {
		return toolkit.Envelope{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("Unknown tool: %s", name)}
	}

	args, _ := params["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}

	return d.invoke(tool, args)
}

// invoke runs a tool, converting any panic into a -32603 Internal error so
// a bug in one tool never crashes the transport loop.
func (d *Dispatcher) invoke(tool toolkit.Tool, args map[string]any) (env toolkit.Envelope, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", slog.Any("recovered", r))
			env = toolkit.Envelope{}
			rpcErr = &Error{Code: CodeInternalError, Message: fmt.Sprintf("%v", r)}
		}
	}()
	return tool.Execute(args), nil
}

// HandleLine decodes one line of input, dispatches it, and reports whether
// a response should be written back (false for notifications — requests
// with no "id" key).
func (d *Dispatcher) HandleLine(line []byte) ([]byte, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      nil,
			"error":   &Error{Code: CodeParseError, Message: "Parse error"},
		}
		out, _ := json.Marshal(resp)
		return out, true
	}

	resp := d.Dispatch(raw)
	_, hasID := raw["id"]

	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      nil,
			"error":   &Error{Code: CodeInternalError, Message: err.Error()},
		})
		return out, true
	}
	return out, hasID
}
