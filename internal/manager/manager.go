// Package manager sequences authentication, wires the transport to the
// event bus, and exposes the public session operations. One Manager owns
// at most one transport and at most one interactive channel at a time.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/simon/remux/internal/config"
	"github.com/simon/remux/internal/events"
	"github.com/simon/remux/internal/tmux"
	"github.com/simon/remux/internal/transport"
)

// State is the connection lifecycle position.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "disconnected"
	}
}

var (
	// ErrNotConnected is returned by session operations attempted while
	// the manager is not Connected. They never implicitly reconnect.
	ErrNotConnected = errors.New("connection not established")

	// ErrNoInteractiveChannel is returned when a key sequence or raw
	// input is sent without an attached session.
	ErrNoInteractiveChannel = errors.New("no interactive channel open")

	// ErrSessionNotVisible marks a protocol inconsistency: create
	// reported success but the follow-up listing does not show the
	// session. Distinct from an ordinary creation failure.
	ErrSessionNotVisible = errors.New("created session not visible in listing")
)

// DialFunc opens a transport for a validated config. Injected so tests
// run against fakes.
type DialFunc func(config.ConnectionConfig) (transport.Transport, error)

// Manager is the top-level facade over one remote host.
type Manager struct {
	id   string
	dial DialFunc
	bus  *events.Bus

	mu      sync.Mutex
	state   State
	failure error
	tr      transport.Transport
	channel transport.Channel
}

// New returns a manager dialing real SSH transports. The id seeds stable
// session IDs, so it should be unique per logical connection.
func New(id string) *Manager {
	return NewWithDialer(id, transport.Dial)
}

// NewWithDialer returns a manager using a custom transport dialer.
func NewWithDialer(id string, dial DialFunc) *Manager {
	return &Manager{id: id, dial: dial, bus: events.NewBus()}
}

// ID returns the connection identifier.
func (m *Manager) ID() string { return m.id }

// Events returns the bus carrying connection-state and terminal-output
// events for this manager.
func (m *Manager) Events() *events.Bus { return m.bus }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// FailureReason returns the classified error of the last failed connect,
// or nil. Cleared by a successful connect.
func (m *Manager) FailureReason() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// IsActive reflects internal state only; it is not a live network probe.
func (m *Manager) IsActive() bool {
	return m.State() == Connected
}

// Connect validates the config, tears down any existing transport, and
// authenticates. Safe to call again after a failure; retries are the
// caller's responsibility.
func (m *Manager) Connect(cfg config.ConnectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	// Close the old transport before dialing the new one, so two live
	// transports never share remote resources.
	m.teardownLocked()
	m.state = Connecting
	m.mu.Unlock()

	tr, err := m.dial(cfg)
	if err != nil {
		werr := wrapConnectError(err)
		m.mu.Lock()
		m.state = Failed
		m.failure = werr
		m.mu.Unlock()
		m.bus.PublishConnection(false)
		return werr
	}

	m.mu.Lock()
	m.tr = tr
	m.state = Connected
	m.failure = nil
	m.mu.Unlock()
	m.bus.PublishConnection(true)
	return nil
}

// wrapConnectError turns a raw dial error into a user-meaningful one.
func wrapConnectError(err error) error {
	if kind := transport.Classify(err); kind != transport.KindGeneric {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return fmt.Errorf("failed to connect: %w", err)
}

// Disconnect is idempotent and never fails: close errors are swallowed
// and internal state is forced to Disconnected so a subsequent Connect
// starts clean.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	hadTransport := m.tr != nil
	m.teardownLocked()
	m.state = Disconnected
	m.failure = nil
	m.mu.Unlock()

	if hadTransport {
		m.bus.PublishConnection(false)
	}
}

// teardownLocked closes the interactive channel and the transport,
// best effort. Callers hold m.mu.
func (m *Manager) teardownLocked() {
	if m.channel != nil {
		_ = m.channel.Close()
		m.channel = nil
	}
	if m.tr != nil {
		_ = m.tr.Close()
		m.tr = nil
	}
}

// activeTransport gates session operations on the Connected state.
func (m *Manager) activeTransport() (transport.Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Connected || m.tr == nil {
		return nil, ErrNotConnected
	}
	return m.tr, nil
}

// ListSessions enumerates the remote sessions. No tmux server running
// parses to an empty list, not an error.
func (m *Manager) ListSessions(ctx context.Context) ([]tmux.Session, error) {
	tr, err := m.activeTransport()
	if err != nil {
		return nil, err
	}

	res, err := tr.Run(ctx, tmux.ListCommand())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if res.ExitStatus != 0 {
		if tmux.IsNoServer(res.Stderr) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %s", strings.TrimSpace(res.Stderr))
	}
	return tmux.ParseSessionList(m.id, res.Stdout), nil
}

// CreateSession creates a detached session and returns its record from a
// fresh listing. An empty name gets a generated, never-reused one.
func (m *Manager) CreateSession(ctx context.Context, name string) (tmux.Session, error) {
	if name == "" {
		name = tmux.GenerateSessionName()
	}

	tr, err := m.activeTransport()
	if err != nil {
		return tmux.Session{}, err
	}

	res, err := tr.Run(ctx, tmux.NewSessionCommand(name))
	if err != nil {
		return tmux.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	if res.ExitStatus != 0 {
		return tmux.Session{}, fmt.Errorf("failed to create session: %s", strings.TrimSpace(res.Stderr))
	}

	sessions, err := m.ListSessions(ctx)
	if err != nil {
		return tmux.Session{}, err
	}
	for _, s := range sessions {
		if s.Name == name {
			return s, nil
		}
	}
	return tmux.Session{}, fmt.Errorf("created session %q: %w", name, ErrSessionNotVisible)
}

// KillSession terminates a named session. Non-zero exit or stderr
// content is a failure.
func (m *Manager) KillSession(ctx context.Context, name string) error {
	tr, err := m.activeTransport()
	if err != nil {
		return err
	}

	res, err := tr.Run(ctx, tmux.KillCommand(name))
	if err != nil {
		return fmt.Errorf("failed to kill session: %w", err)
	}
	if res.ExitStatus != 0 || strings.TrimSpace(res.Stderr) != "" {
		return fmt.Errorf("failed to kill session: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// HasSession probes whether a named session exists.
func (m *Manager) HasSession(ctx context.Context, name string) (bool, error) {
	tr, err := m.activeTransport()
	if err != nil {
		return false, err
	}

	res, err := tr.Run(ctx, tmux.HasSessionCommand(name))
	if err != nil {
		return false, fmt.Errorf("failed to probe session: %w", err)
	}
	return res.ExitStatus == 0, nil
}

// SendCommand types text into a named session and submits it with Enter.
// Embedded double quotes are escaped; nothing else is altered.
func (m *Manager) SendCommand(ctx context.Context, name, text string) error {
	tr, err := m.activeTransport()
	if err != nil {
		return err
	}

	res, err := tr.Run(ctx, tmux.SendKeysCommand(name, text))
	if err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	if res.ExitStatus != 0 || strings.TrimSpace(res.Stderr) != "" {
		return fmt.Errorf("failed to send command: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// CapturePane snapshots the last n lines of a session's active pane.
func (m *Manager) CapturePane(ctx context.Context, name string, lines int) (string, error) {
	tr, err := m.activeTransport()
	if err != nil {
		return "", err
	}

	res, err := tr.Run(ctx, tmux.CapturePaneCommand(name, lines))
	if err != nil {
		return "", fmt.Errorf("failed to capture pane: %w", err)
	}
	if res.ExitStatus != 0 {
		return "", fmt.Errorf("failed to capture pane: %s", strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// AttachSession opens an interactive channel on the named session. All
// bytes received on it are forwarded verbatim to output listeners.
// Attaching while a channel is open closes the prior one first. The
// returned channel closes when the interactive stream ends.
func (m *Manager) AttachSession(name string) (<-chan struct{}, error) {
	m.mu.Lock()
	if m.state != Connected || m.tr == nil {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	if m.channel != nil {
		_ = m.channel.Close()
		m.channel = nil
	}

	ch, err := m.tr.OpenInteractive(tmux.AttachCommand(name))
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to attach session: %w", err)
	}
	m.channel = ch
	m.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.pump(ch.Stdout(), events.Stdout)
	}()
	go func() {
		defer wg.Done()
		m.pump(ch.Stderr(), events.Stderr)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
	return done, nil
}

// Detach closes the interactive channel, if any. The transport stays up.
func (m *Manager) Detach() {
	m.mu.Lock()
	if m.channel != nil {
		_ = m.channel.Close()
		m.channel = nil
	}
	m.mu.Unlock()
}

// SendKeySequence writes a named control byte to the open interactive
// channel. An unrecognized name is rejected before any I/O.
func (m *Manager) SendKeySequence(seq string) error {
	b, err := tmux.KeySequence(seq)
	if err != nil {
		return err
	}
	return m.WriteInput([]byte{b})
}

// WriteInput forwards raw keyboard bytes to the open interactive channel.
func (m *Manager) WriteInput(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Connected {
		return ErrNotConnected
	}
	if m.channel == nil {
		return ErrNoInteractiveChannel
	}
	if _, err := m.channel.Write(p); err != nil {
		return fmt.Errorf("failed to write input: %w", err)
	}
	return nil
}

// pump drains one remote stream into the bus until it ends.
func (m *Manager) pump(r io.Reader, kind events.OutputKind) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			m.bus.PublishOutput(events.Output{Data: data, Time: time.Now(), Kind: kind})
		}
		if err != nil {
			return
		}
	}
}
