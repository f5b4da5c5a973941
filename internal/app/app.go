// Package app wires the tool registry, dispatcher, session manager, and
// transport together into a runnable server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/acolita/shellsession-mcp/internal/config"
	"github.com/acolita/shellsession-mcp/internal/editor"
	"github.com/acolita/shellsession-mcp/internal/rpc"
	"github.com/acolita/shellsession-mcp/internal/session"
	"github.com/acolita/shellsession-mcp/internal/shell"
	"github.com/acolita/shellsession-mcp/internal/toolkit"
	"github.com/acolita/shellsession-mcp/internal/tools"
	"github.com/acolita/shellsession-mcp/internal/transport"
)

// Name and Version identify this server in the initialize handshake and in
// version output; Version is overridden at build time via -ldflags.
const Name = "shellsession-mcp"

var Version = "0.1.0"

// Server owns every long-lived component built from a Config.
type Server struct {
	cfg            *config.Config
	sessionManager *session.Manager
	dispatcher     *rpc.Dispatcher
	logger         *slog.Logger
}

// New builds a Server from cfg. Tool registration, aliasing, and the
// session factory are all fixed here; only Config varies the wiring.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	factory := shell.NewFactory(shell.Config{
		Shell:    cfg.Session.Shell,
		SourceRC: cfg.Session.SourceRC,
	})

	sessionManager := session.NewManager(factory, session.Options{
		MaxOutputChars:   cfg.Session.MaxOutputChars,
		MaxTimeoutMS:     cfg.Session.MaxTimeoutMS,
		DefaultTimeoutMS: cfg.Session.DefaultTimeoutMS,
		ReadyTimeoutS:    cfg.Session.ReadyTimeoutS,
		Logger:           logger,
	})

	registry := buildRegistry(cfg, sessionManager)

	dispatcher := rpc.NewDispatcher(
		registry,
		rpc.ServerInfo{Name: Name, Version: Version},
		rpc.WithAlias("str_replace_based_edit_tool", "str_replace_editor"),
		rpc.WithLogger(logger),
	)

	return &Server{
		cfg:            cfg,
		sessionManager: sessionManager,
		dispatcher:     dispatcher,
		logger:         logger,
	}
}

func buildRegistry(cfg *config.Config, sessionManager *session.Manager) *toolkit.Registry {
	registry := toolkit.NewRegistry()

	registry.Register(tools.NewBash(defaultShell(cfg)))
	registry.Register(tools.NewLocalEditor(cfg.Editor.BaseDir))

	sessionEditor := editor.NewSessioned(sessionManager, cfg.Session.DefaultTimeoutMS)
	prefix := cfg.Session.Prefix

	registry.Register(tools.NewSessionStart(prefix, sessionManager, tools.StartSchema{
		ExtraProperties: map[string]any{
			"shell":   map[string]any{"type": "string", "description": "Override the shell binary for this session"},
			"workdir": map[string]any{"type": "string", "description": "Initial working directory"},
			"user":    map[string]any{"type": "string", "description": "Run the shell as this user (requires the server itself to have permission)"},
		},
	}))
	registry.Register(tools.NewSessionExec(prefix, sessionManager, cfg.Session.DefaultTimeoutMS, cfg.Session.MaxTimeoutMS))
	registry.Register(tools.NewSessionStop(prefix, sessionManager))
	registry.Register(tools.NewSessionList(prefix, sessionManager))
	registry.Register(tools.NewSessionEditor(prefix, sessionEditor, sessionManager))

	return registry
}

func defaultShell(cfg *config.Config) string {
	if cfg.Session.Shell != "" {
		return cfg.Session.Shell
	}
	return shell.DetectShell()
}

// Run starts the configured transport and blocks until it stops: for stdio,
// at end of input; for a Unix socket, when ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting shellsession-mcp",
		slog.String("version", Version),
		slog.String("transport", s.cfg.Server.Transport),
	)
	defer s.sessionManager.StopAll()

	switch s.cfg.Server.Transport {
	case "unix":
		t := transport.NewUnixSocket(s.dispatcher, s.cfg.Server.SocketPath, s.cfg.Server.UnlinkStale, s.logger)
		return t.Run(ctx)
	case "stdio", "":
		t := transport.NewStdio(s.dispatcher, os.Stdin, os.Stdout, s.logger)
		return t.Run(ctx)
	default:
		return fmt.Errorf("unknown transport %q", s.cfg.Server.Transport)
	}
}
