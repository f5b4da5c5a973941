package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/acolita/shellsession-mcp/internal/app"
	"github.com/acolita/shellsession-mcp/internal/config"
	"github.com/acolita/shellsession-mcp/internal/logging"
)

var (
	transportFlag string
	socketFlag    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&transportFlag, "transport", "", "Transport: stdio or unix (overrides config)")
	serveCmd.Flags().StringVar(&socketFlag, "socket", "", "Unix socket path (overrides config, implies --transport unix)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applyServeOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Sanitize)
	logger := slog.Default()

	var watcher *config.Watcher
	if path != "" {
		w, err := config.NewWatcher(path, func(newCfg *config.Config) {
			applyServeOverrides(newCfg)
			logger.Info("config reload observed; restart the server to apply transport or session changes")
		})
		if err != nil {
			logger.Warn("config hot-reload disabled", slog.String("error", err.Error()))
		} else {
			watcher = w
			defer watcher.Close()
		}
	}

	server := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func applyServeOverrides(cfg *config.Config) {
	if transportFlag != "" {
		cfg.Server.Transport = transportFlag
	}
	if socketFlag != "" {
		cfg.Server.SocketPath = socketFlag
		cfg.Server.Transport = "unix"
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
}
