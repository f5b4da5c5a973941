package session

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory builds the child command and display metadata for a new session
// from a caller-supplied parameter bag. Manager is oblivious to shell
// choice, working directory conventions, or how "user" is interpreted.
type Factory func(params map[string]any) (cmd *exec.Cmd, metadata map[string]string, err error)

// Options tunes a Manager. Zero values fall back to the package defaults.
type Options struct {
	MaxOutputChars   int
	MaxTimeoutMS     int
	DefaultTimeoutMS int
	ReadyTimeoutS    int
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxOutputChars <= 0 {
		o.MaxOutputChars = DefaultMaxOutputChars
	}
	if o.MaxTimeoutMS <= 0 {
		o.MaxTimeoutMS = DefaultMaxTimeoutMS
	}
	if o.DefaultTimeoutMS <= 0 {
		o.DefaultTimeoutMS = DefaultTimeoutMS
	}
	if o.ReadyTimeoutS <= 0 {
		o.ReadyTimeoutS = DefaultReadyTimeoutS
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Info is the caller-facing snapshot returned by List.
type Info struct {
	ID       string
	Metadata map[string]string
	Created  time.Time
	Uptime   time.Duration
	Alive    bool
}

// Manager holds every live session and the per-session lock guaranteeing
// at-most-one in-flight exec per session.
type Manager struct {
	factory Factory
	opts    Options

	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

// NewManager creates a Manager that spawns sessions via factory.
func NewManager(factory Factory, opts Options) *Manager {
	return &Manager{
		factory:  factory,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Start spawns a new session, runs its readiness handshake, and registers
// it. On any failure the child process is torn down and no session is
// registered.
func (m *Manager) Start(params map[string]any) (*Session, error) {
	cmd, metadata, err := m.factory(params)
	if err != nil {
		return nil, fmt.Errorf("build session command: %w", err)
	}

	id := uuid.NewString()
	sess, err := newSession(id, cmd, metadata, m.opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("spawn session: %w", err)
	}

	readyTimeout := time.Duration(m.opts.ReadyTimeoutS) * time.Second
	if err := sess.awaitReady(readyTimeout); err != nil {
		sess.terminate()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.locks[id] = &sync.Mutex{}
	m.mu.Unlock()

	m.opts.Logger.Info("session started", slog.String("session_id", id))
	return sess, nil
}

// Exec runs command against session id, clamping timeoutMS to
// [1, MaxTimeoutMS] and defaulting to DefaultTimeoutMS when timeoutMS<=0.
func (m *Manager) Exec(id, command string, timeoutMS int) ExecResult {
	m.mu.RLock()
	sess, sessOK := m.sessions[id]
	lock, lockOK := m.locks[id]
	m.mu.RUnlock()

	if !lockOK {
		return ExecResult{Output: "Error: session has been stopped", ExitCode: 1}
	}

	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: Stop may have removed the session while we
	// were waiting for it.
	m.mu.RLock()
	_, stillThere := m.locks[id]
	m.mu.RUnlock()
	if !stillThere || !sessOK {
		return ExecResult{Output: "Error: session has been stopped", ExitCode: 1}
	}

	if timeoutMS <= 0 {
		timeoutMS = m.opts.DefaultTimeoutMS
	}
	if timeoutMS > m.opts.MaxTimeoutMS {
		timeoutMS = m.opts.MaxTimeoutMS
	}

	return sess.exec(command, time.Duration(timeoutMS)*time.Millisecond, m.opts.MaxOutputChars)
}

// Get retrieves a session by id for read-only inspection (e.g. the editor).
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Stop attempts a graceful "exit" and, failing that, kills the process,
// then removes the session. It reports whether id was a live session.
func (m *Manager) Stop(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	lock := m.locks[id]
	if ok {
		delete(m.sessions, id)
		delete(m.locks, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	lock.Lock()
	if sess.Alive() {
		_ = sess.writeLine("exit")
		lock.Unlock()
		time.Sleep(stopGraceWindow)
	} else {
		lock.Unlock()
	}
	sess.terminate()

	m.opts.Logger.Info("session stopped", slog.String("session_id", id))
	return true
}

// StopAll stops every currently registered session.
func (m *Manager) StopAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Stop(id)
	}
}

// List returns a snapshot of every registered session.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.sessions))
	now := time.Now()
	for id, sess := range m.sessions {
		out = append(out, Info{
			ID:       id,
			Metadata: sess.Metadata,
			Created:  sess.CreatedAt,
			Uptime:   now.Sub(sess.CreatedAt),
			Alive:    sess.Alive(),
		})
	}
	return out
}
