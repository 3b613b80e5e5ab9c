package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zwavego/zwsclient/pkg/client"
	"github.com/zwavego/zwsclient/pkg/model"
	"github.com/zwavego/zwsclient/pkg/schema"
)

// Manager errors.
var (
	ErrClosed = errors.New("connection manager closed")
)

// State represents the session state.
type State uint8

const (
	// StateDisconnected indicates no active session.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates the driver graph is live.
	StateConnected

	// StateReconnecting indicates the session dropped and the manager is
	// backing off before the next attempt.
	StateReconnecting

	// StateClosed indicates the manager has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ManagerConfig configures a connection Manager.
type ManagerConfig struct {
	// Client configures each client session the manager builds.
	Client client.Config

	// Backoff customizes the reconnection backoff. Zero values use the
	// package defaults.
	Backoff BackoffConfig

	// AutoReconnect controls whether a dropped session is rebuilt. When
	// false, Run returns after the first session ends.
	AutoReconnect bool

	// Logger receives manager log records. Defaults to slog.Default().
	Logger *slog.Logger
}

// Manager keeps a client session alive across connection losses. Each
// attempt builds a fresh client; the driver graph is rebuilt from the
// server's state dump on every successful reconnect.
type Manager struct {
	url    string
	config ManagerConfig
	logger *slog.Logger

	backoff *Backoff

	mu      sync.RWMutex
	state   State
	current *client.Client

	onDriverReady  func(*model.Driver)
	onDisconnected func(err error)
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a manager for the given server URL (not yet running).
func NewManager(url string, config ManagerConfig) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		url:     url,
		config:  config,
		logger:  logger.With("component", "connection"),
		backoff: NewBackoffWithConfig(config.Backoff),
		state:   StateDisconnected,
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Client returns the client of the current session, or nil when no
// session is live. The returned client is replaced on reconnect; callers
// should re-resolve it from the OnDriverReady callback.
func (m *Manager) Client() *client.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnDriverReady sets the callback invoked every time a session reaches
// the driver-ready point, including after reconnects.
func (m *Manager) OnDriverReady(fn func(*model.Driver)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDriverReady = fn
}

// OnDisconnected sets the callback invoked when a session ends.
func (m *Manager) OnDisconnected(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets the callback invoked before each backoff wait.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// BackoffAttempts returns the number of attempts since the last
// successful session.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

// Run drives the session until the context is cancelled or a terminal
// error occurs. It blocks; run it in its own goroutine. A manager that
// has reached StateClosed cannot be run again.
func (m *Manager) Run(ctx context.Context) error {
	if m.State() == StateClosed {
		return ErrClosed
	}
	for {
		err := m.runSession(ctx)

		m.mu.Lock()
		m.current = nil
		onDisconnected := m.onDisconnected
		m.mu.Unlock()

		if onDisconnected != nil && err != nil && ctx.Err() == nil {
			onDisconnected(err)
		}

		if ctx.Err() != nil {
			m.setState(StateClosed)
			return ctx.Err()
		}

		var incompatible *schema.IncompatibleVersionError
		if errors.As(err, &incompatible) {
			m.setState(StateClosed)
			return err
		}
		if !m.config.AutoReconnect {
			m.setState(StateDisconnected)
			return err
		}

		m.setState(StateReconnecting)
		delay := m.backoff.Next()
		attempt := m.backoff.Attempts()

		m.mu.RLock()
		onReconnecting := m.onReconnecting
		m.mu.RUnlock()
		if onReconnecting != nil {
			onReconnecting(attempt, delay)
		}
		m.logger.Info("reconnecting", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			m.setState(StateClosed)
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runSession performs one connect + listen cycle.
func (m *Manager) runSession(ctx context.Context) error {
	m.setState(StateConnecting)

	c := client.New(m.url, m.config.Client)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	m.mu.Lock()
	m.current = c
	m.mu.Unlock()

	// The watcher must not outlive the session: a session that fails
	// before driver-ready closes sessionDone, and waiting on watcherDone
	// keeps the backoff reset from racing the next attempt's Next.
	ready := make(chan struct{})
	sessionDone := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ready:
			m.backoff.Reset()
			m.setState(StateConnected)
			m.mu.RLock()
			onDriverReady := m.onDriverReady
			m.mu.RUnlock()
			if onDriverReady != nil {
				onDriverReady(c.Driver())
			}
		case <-sessionDone:
		case <-ctx.Done():
		}
	}()

	err := c.Listen(ctx, ready)
	close(sessionDone)
	<-watcherDone
	return err
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	m.mu.Unlock()
	if old != s {
		m.logger.Debug("state changed", "from", old, "to", s)
	}
}
