// Package config handles configuration parsing for shellsession-mcp.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default config file path:
// $XDG_CONFIG_HOME/shellsession-mcp/config.yaml or ~/.config/shellsession-mcp/config.yaml
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "shellsession-mcp", "config.yaml")
}

// Config represents the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Editor  EditorConfig  `yaml:"editor"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig defines how the dispatcher is exposed.
type ServerConfig struct {
	Transport   string `yaml:"transport"`    // "stdio" or "unix"
	SocketPath  string `yaml:"socket_path"`  // used when transport == "unix"
	UnlinkStale bool   `yaml:"unlink_stale"` // remove a pre-existing socket file before binding
}

// SessionConfig defines persistent shell session behavior.
type SessionConfig struct {
	Shell            string `yaml:"shell"`             // shell binary invoked for every session (default: $SHELL or /bin/bash)
	SourceRC         bool   `yaml:"source_rc"`         // source .bashrc/.zshrc (default: true)
	Prefix           string `yaml:"prefix"`            // tool name prefix, default "session"
	MaxOutputChars   int    `yaml:"max_output_chars"`  // per-exec output truncation limit
	MaxTimeoutMS     int    `yaml:"max_timeout_ms"`    // upper bound a caller's timeout_ms is clamped to
	DefaultTimeoutMS int    `yaml:"default_timeout_ms"` // timeout used when a caller omits timeout_ms
	ReadyTimeoutS    int    `yaml:"ready_timeout_s"`    // seconds allowed for the startup handshake
}

// EditorConfig defines the non-sessioned editor's filesystem root.
type EditorConfig struct {
	BaseDir string `yaml:"base_dir"` // paths are resolved relative to this; empty means "/"
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // "debug", "info", "warn", "error"
	Sanitize bool   `yaml:"sanitize"` // sanitize sensitive data from logs
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "stdio",
		},
		Session: SessionConfig{
			SourceRC:         true,
			Prefix:           "session",
			MaxOutputChars:   30000,
			MaxTimeoutMS:     600000,
			DefaultTimeoutMS: 120000,
			ReadyTimeoutS:    300,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Sanitize: true,
		},
	}
}

// Load loads configuration from a YAML file. An empty path returns defaults.
// A missing file also returns defaults, so a first run needs no prior setup.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Validate normalizes the configuration, filling in defaults for anything a
// partially-specified file left zero.
func (c *Config) Validate() error {
	if c.Server.Transport == "" {
		c.Server.Transport = "stdio"
	}
	if c.Server.Transport != "stdio" && c.Server.Transport != "unix" {
		return fmt.Errorf("server.transport must be %q or %q, got %q", "stdio", "unix", c.Server.Transport)
	}
	if c.Server.Transport == "unix" && c.Server.SocketPath == "" {
		return fmt.Errorf("server.socket_path is required when server.transport is %q", "unix")
	}
	if c.Session.Prefix == "" {
		c.Session.Prefix = "session"
	}
	if c.Session.MaxOutputChars <= 0 {
		c.Session.MaxOutputChars = 30000
	}
	if c.Session.MaxTimeoutMS <= 0 {
		c.Session.MaxTimeoutMS = 600000
	}
	if c.Session.DefaultTimeoutMS <= 0 {
		c.Session.DefaultTimeoutMS = 120000
	}
	if c.Session.DefaultTimeoutMS > c.Session.MaxTimeoutMS {
		c.Session.DefaultTimeoutMS = c.Session.MaxTimeoutMS
	}
	if c.Session.ReadyTimeoutS <= 0 {
		c.Session.ReadyTimeoutS = 300
	}
	return nil
}

// Save writes the configuration to a YAML file, creating its directory if
// necessary.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
