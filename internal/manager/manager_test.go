package manager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/simon/remux/internal/config"
	"github.com/simon/remux/internal/events"
	"github.com/simon/remux/internal/transport"
)

// fakeChannel records written input and streams canned output.
type fakeChannel struct {
	mu     sync.Mutex
	input  bytes.Buffer
	stdout io.Reader
	stderr io.Reader
	closed bool
}

func newFakeChannel(stdout, stderr string) *fakeChannel {
	return &fakeChannel{
		stdout: strings.NewReader(stdout),
		stderr: strings.NewReader(stderr),
	}
}

func (c *fakeChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input.Write(p)
}

func (c *fakeChannel) Stdout() io.Reader { return c.stdout }
func (c *fakeChannel) Stderr() io.Reader { return c.stderr }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.input.Bytes()...)
}

// fakeTransport answers control commands from a table and hands out fake
// channels.
type fakeTransport struct {
	mu       sync.Mutex
	commands []string
	runFn    func(command string) (transport.Result, error)

	channels    []*fakeChannel
	nextStdout  string
	openErr     error
	closed      bool
	initialCmds []string
}

func (t *fakeTransport) Run(_ context.Context, command string) (transport.Result, error) {
	t.mu.Lock()
	t.commands = append(t.commands, command)
	t.mu.Unlock()
	if t.runFn != nil {
		return t.runFn(command)
	}
	return transport.Result{}, nil
}

func (t *fakeTransport) OpenInteractive(initialCommand string) (transport.Channel, error) {
	if t.openErr != nil {
		return nil, t.openErr
	}
	ch := newFakeChannel(t.nextStdout, "")
	t.mu.Lock()
	t.channels = append(t.channels, ch)
	t.initialCmds = append(t.initialCmds, initialCommand)
	t.mu.Unlock()
	return ch, nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) recorded() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.commands...)
}

func validConfig() config.ConnectionConfig {
	return config.ConnectionConfig{
		Host:     "example.com",
		Port:     22,
		Username: "deploy",
		Auth:     config.AuthPassword,
		Password: "secret",
	}
}

// connected returns a manager wired to the given fake, already connected.
func connected(t *testing.T, fake *fakeTransport) *Manager {
	t.Helper()
	m := NewWithDialer("conn-test", func(config.ConnectionConfig) (transport.Transport, error) {
		return fake, nil
	})
	if err := m.Connect(validConfig()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return m
}

func TestConnectValidatesBeforeDialing(t *testing.T) {
	dialCalls := 0
	m := NewWithDialer("c", func(config.ConnectionConfig) (transport.Transport, error) {
		dialCalls++
		return &fakeTransport{}, nil
	})

	bad := validConfig()
	bad.Password = ""
	if err := m.Connect(bad); err == nil {
		t.Fatal("invalid config must be rejected")
	}
	if dialCalls != 0 {
		t.Errorf("dial must not run for an invalid config, ran %d times", dialCalls)
	}
	if m.IsActive() {
		t.Error("manager must not be active after rejected connect")
	}
}

func TestConnectSuccess(t *testing.T) {
	m := connected(t, &fakeTransport{})
	if !m.IsActive() {
		t.Error("IsActive should be true after connect")
	}
	if m.State() != Connected {
		t.Errorf("state = %v, want Connected", m.State())
	}
	if m.FailureReason() != nil {
		t.Errorf("failure reason should be cleared, got %v", m.FailureReason())
	}
}

func TestConnectFailureIsClassified(t *testing.T) {
	m := NewWithDialer("c", func(config.ConnectionConfig) (transport.Transport, error) {
		return nil, errors.New("dial tcp 10.0.0.1:22: connect: connection refused")
	})

	var gotEvent *bool
	m.Events().SubscribeConnection(func(connected bool) { gotEvent = &connected })

	err := m.Connect(validConfig())
	if err == nil {
		t.Fatal("connect should fail")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error should carry the refused classification: %v", err)
	}
	if m.IsActive() {
		t.Error("IsActive must be false after failed connect")
	}
	if m.State() != Failed {
		t.Errorf("state = %v, want Failed", m.State())
	}
	if m.FailureReason() == nil {
		t.Error("failure reason should be recorded")
	}
	if gotEvent == nil || *gotEvent {
		t.Error("a false connection event should fire on failure")
	}
}

func TestConnectFiresTrueEvent(t *testing.T) {
	m := NewWithDialer("c", func(config.ConnectionConfig) (transport.Transport, error) {
		return &fakeTransport{}, nil
	})

	var eventsSeen []bool
	m.Events().SubscribeConnection(func(connected bool) { eventsSeen = append(eventsSeen, connected) })

	if err := m.Connect(validConfig()); err != nil {
		t.Fatal(err)
	}
	if len(eventsSeen) != 1 || !eventsSeen[0] {
		t.Errorf("events = %v, want [true]", eventsSeen)
	}
}

func TestReconnectClosesOldTransportFirst(t *testing.T) {
	var log []string
	var logMu sync.Mutex
	record := func(s string) {
		logMu.Lock()
		log = append(log, s)
		logMu.Unlock()
	}

	n := 0
	m := NewWithDialer("c", func(config.ConnectionConfig) (transport.Transport, error) {
		n++
		record("open")
		return &loggingTransport{onClose: func() { record("close") }}, nil
	})

	if err := m.Connect(validConfig()); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(validConfig()); err != nil {
		t.Fatal(err)
	}

	want := []string{"open", "close", "open"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v (old transport must close before new opens)", log, want)
		}
	}
}

type loggingTransport struct {
	onClose func()
}

func (t *loggingTransport) Run(context.Context, string) (transport.Result, error) {
	return transport.Result{}, nil
}
func (t *loggingTransport) OpenInteractive(string) (transport.Channel, error) {
	return nil, errors.New("not supported")
}
func (t *loggingTransport) Close() error {
	t.onClose()
	return nil
}

func TestDisconnectIsIdempotent(t *testing.T) {
	fake := &fakeTransport{}
	m := connected(t, fake)

	m.Disconnect()
	if m.IsActive() {
		t.Error("IsActive must be false after disconnect")
	}
	if !fake.closed {
		t.Error("transport must be closed on disconnect")
	}

	// Second disconnect on an already-closed connection must not panic
	// or error.
	m.Disconnect()
	if m.IsActive() {
		t.Error("IsActive must stay false")
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	fake := &fakeTransport{}
	m := NewWithDialer("c", func(config.ConnectionConfig) (transport.Transport, error) {
		return fake, nil
	})
	ctx := context.Background()

	ops := []struct {
		name string
		call func() error
	}{
		{"list", func() error { _, err := m.ListSessions(ctx); return err }},
		{"create", func() error { _, err := m.CreateSession(ctx, "x"); return err }},
		{"kill", func() error { return m.KillSession(ctx, "x") }},
		{"has", func() error { _, err := m.HasSession(ctx, "x"); return err }},
		{"send", func() error { return m.SendCommand(ctx, "x", "ls") }},
		{"capture", func() error { _, err := m.CapturePane(ctx, "x", 10); return err }},
		{"attach", func() error { _, err := m.AttachSession("x"); return err }},
		{"keyseq", func() error { return m.SendKeySequence("ctrl+c") }},
		{"input", func() error { return m.WriteInput([]byte("x")) }},
	}

	for _, op := range ops {
		if err := op.call(); !errors.Is(err, ErrNotConnected) {
			t.Errorf("%s: error = %v, want ErrNotConnected", op.name, err)
		}
	}
	if len(fake.recorded()) != 0 {
		t.Errorf("no transport I/O may happen while disconnected, saw %v", fake.recorded())
	}
}

func TestListSessions(t *testing.T) {
	fake := &fakeTransport{runFn: func(command string) (transport.Result, error) {
		if strings.Contains(command, "list-sessions") {
			return transport.Result{Stdout: "demo|1700000000|1700000100|0|1\nops|1700000200|1700000300|1|2\n"}, nil
		}
		return transport.Result{}, nil
	}}
	m := connected(t, fake)

	sessions, err := m.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0].Name != "demo" || sessions[1].Windows != 2 {
		t.Errorf("unexpected sessions: %+v", sessions)
	}
}

func TestListSessionsNoServer(t *testing.T) {
	fake := &fakeTransport{runFn: func(string) (transport.Result, error) {
		return transport.Result{ExitStatus: 1, Stderr: "no server running on /tmp/tmux-1000/default"}, nil
	}}
	m := connected(t, fake)

	sessions, err := m.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("no server running must not be an error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected empty list, got %+v", sessions)
	}
}

func TestCreateSession(t *testing.T) {
	fake := &fakeTransport{runFn: func(command string) (transport.Result, error) {
		if strings.Contains(command, "list-sessions") {
			return transport.Result{Stdout: "demo|1700000000|1700000000|0|1\n"}, nil
		}
		return transport.Result{}, nil
	}}
	m := connected(t, fake)

	s, err := m.CreateSession(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "demo" || s.Windows < 1 {
		t.Errorf("unexpected session: %+v", s)
	}

	cmds := fake.recorded()
	if len(cmds) != 2 || cmds[0] != `tmux new-session -d -s "demo"` || !strings.Contains(cmds[1], "list-sessions") {
		t.Errorf("unexpected wire commands: %v", cmds)
	}
}

func TestCreateSessionFailure(t *testing.T) {
	fake := &fakeTransport{runFn: func(command string) (transport.Result, error) {
		if strings.Contains(command, "new-session") {
			return transport.Result{ExitStatus: 1, Stderr: "duplicate session: demo"}, nil
		}
		return transport.Result{}, nil
	}}
	m := connected(t, fake)

	_, err := m.CreateSession(context.Background(), "demo")
	if err == nil || !strings.Contains(err.Error(), "failed to create session") {
		t.Errorf("error = %v, want create failure", err)
	}
}

func TestCreateSessionNotVisible(t *testing.T) {
	fake := &fakeTransport{runFn: func(command string) (transport.Result, error) {
		if strings.Contains(command, "list-sessions") {
			return transport.Result{Stdout: "other|1700000000|1700000000|0|1\n"}, nil
		}
		return transport.Result{}, nil
	}}
	m := connected(t, fake)

	_, err := m.CreateSession(context.Background(), "demo")
	if !errors.Is(err, ErrSessionNotVisible) {
		t.Errorf("error = %v, want ErrSessionNotVisible", err)
	}
}

func TestCreateSessionGeneratesUniqueNames(t *testing.T) {
	var created []string
	fake := &fakeTransport{runFn: func(command string) (transport.Result, error) {
		if strings.Contains(command, "new-session") {
			name := command[strings.Index(command, `-s "`)+4 : len(command)-1]
			created = append(created, name)
			return transport.Result{}, nil
		}
		// Echo every created session back in the listing.
		var lines []string
		for _, n := range created {
			lines = append(lines, n+"|1700000000|1700000000|0|1")
		}
		return transport.Result{Stdout: strings.Join(lines, "\n")}, nil
	}}
	m := connected(t, fake)

	a, err := m.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name == b.Name {
		t.Errorf("generated names must never repeat: %q", a.Name)
	}
}

func TestKillSessionFailsOnStderr(t *testing.T) {
	fake := &fakeTransport{runFn: func(string) (transport.Result, error) {
		return transport.Result{Stderr: "can't find session: demo"}, nil
	}}
	m := connected(t, fake)

	err := m.KillSession(context.Background(), "demo")
	if err == nil || !strings.Contains(err.Error(), "failed to kill session") {
		t.Errorf("error = %v, want kill failure", err)
	}
}

func TestSendCommandEscapesQuotes(t *testing.T) {
	fake := &fakeTransport{}
	m := connected(t, fake)

	if err := m.SendCommand(context.Background(), "demo", `echo "hello"`); err != nil {
		t.Fatal(err)
	}

	cmds := fake.recorded()
	want := `tmux send-keys -t "demo" "echo \"hello\"" Enter`
	if len(cmds) != 1 || cmds[0] != want {
		t.Errorf("wire command = %v, want %q", cmds, want)
	}
}

func TestAttachForwardsOutput(t *testing.T) {
	fake := &fakeTransport{nextStdout: "remote bytes"}
	m := connected(t, fake)

	received := make(chan []byte, 4)
	m.Events().SubscribeOutput(func(ev events.Output) {
		if ev.Kind == events.Stdout {
			received <- ev.Data
		}
	})

	done, err := m.AttachSession("demo")
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("attach stream did not drain")
	}

	var all []byte
	for {
		select {
		case chunk := <-received:
			all = append(all, chunk...)
			continue
		default:
		}
		break
	}
	if string(all) != "remote bytes" {
		t.Errorf("forwarded output = %q, want %q", all, "remote bytes")
	}

	if fake.initialCmds[0] != `tmux attach-session -t "demo"` {
		t.Errorf("attach command = %q", fake.initialCmds[0])
	}
}

func TestAttachClosesPriorChannel(t *testing.T) {
	fake := &fakeTransport{}
	m := connected(t, fake)

	if _, err := m.AttachSession("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AttachSession("b"); err != nil {
		t.Fatal(err)
	}

	if len(fake.channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(fake.channels))
	}
	if !fake.channels[0].closed {
		t.Error("prior channel must be closed before the new attach")
	}
	if fake.channels[1].closed {
		t.Error("new channel must stay open")
	}
}

func TestSendKeySequence(t *testing.T) {
	fake := &fakeTransport{}
	m := connected(t, fake)

	if _, err := m.AttachSession("demo"); err != nil {
		t.Fatal(err)
	}

	if err := m.SendKeySequence("ctrl+c"); err != nil {
		t.Fatal(err)
	}
	ch := fake.channels[0]
	if got := ch.written(); len(got) != 1 || got[0] != 0x03 {
		t.Errorf("channel input = %v, want [0x03]", got)
	}

	if err := m.SendKeySequence("bogus"); err == nil {
		t.Error("unknown sequence must be rejected")
	}
	if got := ch.written(); len(got) != 1 {
		t.Errorf("rejected sequence must write nothing, input = %v", got)
	}
}

func TestSendKeySequenceRequiresChannel(t *testing.T) {
	m := connected(t, &fakeTransport{})
	if err := m.SendKeySequence("ctrl+c"); !errors.Is(err, ErrNoInteractiveChannel) {
		t.Errorf("error = %v, want ErrNoInteractiveChannel", err)
	}
}

func TestOutputListenerIsolation(t *testing.T) {
	fake := &fakeTransport{nextStdout: "x"}
	m := connected(t, fake)

	var before, after bool
	m.Events().SubscribeOutput(func(events.Output) { before = true })
	m.Events().SubscribeOutput(func(events.Output) { panic("listener bug") })
	m.Events().SubscribeOutput(func(events.Output) { after = true })

	done, err := m.AttachSession("demo")
	if err != nil {
		t.Fatal(err)
	}
	<-done

	if !before || !after {
		t.Errorf("listeners around a panicking one must receive: before=%v after=%v", before, after)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	m, err := r.Create("home")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create("home"); err == nil {
		t.Error("duplicate handle must be rejected")
	}

	got, ok := r.Get("home")
	if !ok || got != m {
		t.Error("Get should return the registered manager")
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("lookup must not create")
	}

	r.Remove("home")
	if _, ok := r.Get("home"); ok {
		t.Error("Remove should unregister")
	}
	r.Remove("home") // no-op
}
