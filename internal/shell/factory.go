// Package shell builds the *exec.Cmd behind a persistent session: shell
// selection, working directory, and environment, translated from the
// caller-supplied parameter bag a session_start call carries.
package shell

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/acolita/shellsession-mcp/internal/session"
)

// Config carries the server-wide defaults a Factory falls back to when a
// session_start call doesn't override them.
type Config struct {
	Shell    string // default shell binary; empty means DetectShell()
	SourceRC bool   // whether login shells should source rc files
}

// NewFactory returns a session.Factory that builds a plain (non-PTY) shell
// process from params: optional "shell", "workdir" and "user" string keys
// override the server defaults; everything else about the process comes from
// cfg.
func NewFactory(cfg Config) session.Factory {
	defaultShell := cfg.Shell
	if defaultShell == "" {
		defaultShell = DetectShell()
	}

	return func(params map[string]any) (*exec.Cmd, map[string]string, error) {
		shellPath := defaultShell
		if v, ok := params["shell"].(string); ok && v != "" {
			shellPath = v
		}

		args := loginArgs(shellPath, cfg.SourceRC)
		cmd := exec.Command(shellPath, args...)
		cmd.Env = append(os.Environ(), "NO_COLOR=1", "TERM=dumb")

		metadata := map[string]string{"shell": shellPath}

		if workdir, ok := params["workdir"].(string); ok && workdir != "" {
			cmd.Dir = workdir
			metadata["workdir"] = workdir
		}

		if username, ok := params["user"].(string); ok && username != "" {
			cred, err := credentialFor(username)
			if err != nil {
				return nil, nil, err
			}
			cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
			metadata["user"] = username
		}

		return cmd, metadata, nil
	}
}

// loginArgs picks the flag that makes shellPath behave as an interactive
// login shell when SourceRC is set, so a session's .bashrc/.zshrc runs the
// same way it would in a terminal.
func loginArgs(shellPath string, sourceRC bool) []string {
	if !sourceRC {
		return nil
	}
	switch base(shellPath) {
	case "bash", "zsh":
		return []string{"-l"}
	default:
		return nil
	}
}

// DetectShell picks a shell binary the way an interactive terminal would:
// $SHELL first, then the first common shell found on disk.
func DetectShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	for _, candidate := range []string{"/bin/bash", "/bin/zsh", "/bin/sh"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "/bin/sh"
}

func base(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// credentialFor resolves username to a syscall.Credential the child process
// should run as. Requires the server itself to have permission to setuid.
func credentialFor(username string) (*syscall.Credential, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, fmt.Errorf("look up user %q: %w", username, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse uid for %q: %w", username, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse gid for %q: %w", username, err)
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
