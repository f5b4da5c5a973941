package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	version = "0.1.0"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "shellsession-mcp",
	Short:         "MCP server for bash, file editing, and persistent shell sessions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (default: $XDG_CONFIG_HOME/shellsession-mcp/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func versionString() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("shellsession-mcp %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("shellsession-mcp %s\n", version)
}
