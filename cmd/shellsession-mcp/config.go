package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/acolita/shellsession-mcp/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a configuration file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg := config.DefaultConfig()

	transport := cfg.Server.Transport
	socketPath := cfg.Server.SocketPath
	shellPath := cfg.Session.Shell
	prefix := cfg.Session.Prefix
	baseDir := cfg.Editor.BaseDir
	logLevel := cfg.Logging.Level
	defaultTimeout := strconv.Itoa(cfg.Session.DefaultTimeoutMS)
	maxTimeout := strconv.Itoa(cfg.Session.MaxTimeoutMS)
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transport").
				Description("How clients connect to the server").
				Options(
					huh.NewOption("stdio (one client per process)", "stdio"),
					huh.NewOption("unix domain socket", "unix"),
				).
				Value(&transport),

			huh.NewInput().
				Title("Socket path").
				Description("Only used when transport is unix").
				Value(&socketPath),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Shell binary").
				Description("Leave empty to auto-detect $SHELL / bash / zsh / sh").
				Value(&shellPath),

			huh.NewInput().
				Title("Session tool prefix").
				Description("Session tools are exposed as <prefix>_start, <prefix>_exec, <prefix>_stop, <prefix>_list").
				Value(&prefix),

			huh.NewInput().
				Title("Default exec timeout (ms)").
				Value(&defaultTimeout),

			huh.NewInput().
				Title("Max exec timeout (ms)").
				Value(&maxTimeout),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Editor base directory").
				Description("Non-sessioned editor paths resolve relative to this; empty means /").
				Value(&baseDir),

			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&logLevel),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Write configuration to %s?", path)).
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("config wizard: %w", err)
	}
	if !confirmed {
		fmt.Println("Aborted; nothing written.")
		return nil
	}

	cfg.Server.Transport = transport
	cfg.Server.SocketPath = socketPath
	cfg.Session.Shell = shellPath
	cfg.Session.Prefix = prefix
	cfg.Editor.BaseDir = baseDir
	cfg.Logging.Level = logLevel
	if n, err := strconv.Atoi(defaultTimeout); err == nil {
		cfg.Session.DefaultTimeoutMS = n
	}
	if n, err := strconv.Atoi(maxTimeout); err == nil {
		cfg.Session.MaxTimeoutMS = n
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Wrote configuration to %s\n", path)
	return nil
}
