// Package tui is the interactive dashboard: sessions across every
// connected host, with preview, create, kill, send, and attach.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/simon/remux/internal/manager"
	"github.com/simon/remux/internal/session"
)

const pollInterval = 2 * time.Second

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type tickMsg time.Time

type sessionsMsg []session.Session

type sessionCreatedMsg struct {
	Name string
	Err  error
}

type previewOutputMsg struct {
	Output string
}

type previewState struct {
	SessionName string
	Host        string
	Output      string
}

type confirmAction struct {
	SessionName string
	Host        string
}

type Model struct {
	registry      *manager.Registry
	sessions      []session.Session
	filtered      []session.Session
	cursor        int
	scrollOffset  int
	input         textinput.Model
	preview       *previewState
	confirmKill   *confirmAction
	width, height int

	// Set when the user confirms an attach; cmd/root performs the real
	// attach after the program exits.
	AttachTarget string
	AttachHost   string

	quitting bool
	err      error
}

func NewModel(registry *manager.Registry) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter or enter command..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	return Model{
		registry: registry,
		input:    ti,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshSessions, tickCmd())
}

func (m Model) refreshSessions() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sessionsMsg(session.ListAll(ctx, m.registry))
}

func (m Model) capturePreviewCmd(host, name string) tea.Cmd {
	mgr, ok := m.registry.Get(host)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		output, err := mgr.CapturePane(ctx, name, 50)
		if err != nil {
			return previewOutputMsg{Output: "Error: " + err.Error()}
		}
		return previewOutputMsg{Output: strings.TrimRight(output, "\n")}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case sessionsMsg:
		m.sessions = msg
		if m.preview == nil {
			m.applyFilter()
		}
		return m, nil

	case sessionCreatedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.input.SetValue("")
		return m, m.refreshSessions

	case previewOutputMsg:
		if m.preview != nil {
			m.preview.Output = msg.Output
		}
		return m, nil

	case error:
		m.err = msg
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(), m.refreshSessions}
		if m.preview != nil {
			if cmd := m.capturePreviewCmd(m.preview.Host, m.preview.SessionName); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits
	if key.Matches(msg, keys.CtrlC) {
		m.quitting = true
		return m, tea.Quit
	}

	if key.Matches(msg, keys.Escape) {
		if m.confirmKill != nil {
			m.confirmKill = nil
			return m, nil
		}
		if m.preview != nil {
			m.preview = nil
			m.input.SetValue("")
			m.applyFilter()
			return m, nil
		}
		m.input.SetValue("")
		m.applyFilter()
		return m, nil
	}

	// Pending kill confirmation: Enter proceeds, anything else cancels.
	if m.confirmKill != nil {
		if key.Matches(msg, keys.Enter) {
			return m.executeKill()
		}
		m.confirmKill = nil
		return m, nil
	}

	if key.Matches(msg, keys.Kill) {
		if sel := m.selectedSession(); sel != nil {
			m.confirmKill = &confirmAction{SessionName: sel.Name, Host: sel.Host}
		}
		return m, nil
	}

	if key.Matches(msg, keys.Quit) && m.input.Value() == "" && m.preview == nil {
		m.quitting = true
		return m, tea.Quit
	}

	if m.preview != nil {
		return m.handlePreviewKey(msg)
	}
	return m.handleNormalKey(msg)
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Navigation: only when input is empty
	if m.input.Value() == "" {
		if key.Matches(msg, keys.Up) {
			if m.cursor > 0 {
				m.cursor--
				m.ensureCursorVisible()
			}
			return m, nil
		}
		if key.Matches(msg, keys.Down) {
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				m.ensureCursorVisible()
			}
			return m, nil
		}
	}

	if key.Matches(msg, keys.Enter) {
		text := strings.TrimSpace(m.input.Value())

		if cmd := m.parseNewCommand(text); cmd != nil {
			m.input.SetValue("")
			return m, cmd
		}

		sel := m.selectedSession()
		if sel == nil {
			return m, nil
		}
		m.preview = &previewState{SessionName: sel.Name, Host: sel.Host}
		m.input.SetValue("")
		return m, m.capturePreviewCmd(sel.Host, sel.Name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Value() == "" {
		if key.Matches(msg, keys.Up) {
			if m.cursor > 0 {
				m.cursor--
				m.ensureCursorVisible()
			}
			return m.switchPreview()
		}
		if key.Matches(msg, keys.Down) {
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				m.ensureCursorVisible()
			}
			return m.switchPreview()
		}
	}

	if key.Matches(msg, keys.Enter) {
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			// Attach: hand the target back to the command layer.
			m.AttachTarget = m.preview.SessionName
			m.AttachHost = m.preview.Host
			m.preview = nil
			m.quitting = true
			return m, tea.Quit
		}
		// Send text to the previewed session.
		host, name := m.preview.Host, m.preview.SessionName
		m.input.SetValue("")
		if mgr, ok := m.registry.Get(host); ok {
			return m, tea.Sequence(
				func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := mgr.SendCommand(ctx, name, text); err != nil {
						return err
					}
					return nil
				},
				m.capturePreviewCmd(host, name),
			)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) switchPreview() (tea.Model, tea.Cmd) {
	sel := m.selectedSession()
	if sel == nil {
		return m, nil
	}
	m.preview.SessionName = sel.Name
	m.preview.Host = sel.Host
	m.preview.Output = ""
	return m, m.capturePreviewCmd(sel.Host, sel.Name)
}

func (m Model) executeKill() (Model, tea.Cmd) {
	if m.confirmKill == nil {
		return m, nil
	}
	host, name := m.confirmKill.Host, m.confirmKill.SessionName
	m.confirmKill = nil
	m.preview = nil

	mgr, ok := m.registry.Get(host)
	if !ok {
		return m, m.refreshSessions
	}
	return m, tea.Sequence(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := mgr.KillSession(ctx, name); err != nil {
				return err
			}
			return nil
		},
		m.refreshSessions,
	)
}

// parseNewCommand handles "/new [host:]name".
func (m Model) parseNewCommand(text string) tea.Cmd {
	if !strings.HasPrefix(text, "/new ") {
		return nil
	}
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil
	}

	host, name := splitHostName(parts[1], m.registry.Handles())
	if !validName.MatchString(name) {
		return nil
	}
	mgr, ok := m.registry.Get(host)
	if !ok {
		return func() tea.Msg {
			return sessionCreatedMsg{Name: name, Err: fmt.Errorf("unknown host %q", host)}
		}
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := mgr.CreateSession(ctx, name)
		return sessionCreatedMsg{Name: name, Err: err}
	}
}

// splitHostName splits "host:name" into (host, name); a bare name goes
// to the first registered host.
func splitHostName(s string, handles []string) (host, name string) {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	if len(handles) > 0 {
		return handles[0], s
	}
	return "", s
}

func (m *Model) applyFilter() {
	query := strings.TrimSpace(m.input.Value())
	// Don't filter when typing a command (starts with /)
	if query == "" || strings.HasPrefix(query, "/") {
		m.filtered = m.sessions
	} else {
		lower := strings.ToLower(query)
		m.filtered = nil
		for _, s := range m.sessions {
			if strings.Contains(strings.ToLower(s.Name), lower) ||
				strings.Contains(strings.ToLower(s.Host), lower) {
				m.filtered = append(m.filtered, s)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.ensureCursorVisible()
}

func (m Model) maxVisibleSessions() int {
	if m.preview == nil {
		return len(m.filtered)
	}
	maxVis := m.height / 10
	if maxVis < 5 {
		maxVis = 5
	}
	if maxVis > len(m.filtered) {
		maxVis = len(m.filtered)
	}
	return maxVis
}

func (m *Model) ensureCursorVisible() {
	maxVis := m.maxVisibleSessions()
	if maxVis <= 0 {
		m.scrollOffset = 0
		return
	}
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+maxVis {
		m.scrollOffset = m.cursor - maxVis + 1
	}
	maxOffset := len(m.filtered) - maxVis
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.scrollOffset > maxOffset {
		m.scrollOffset = maxOffset
	}
}

func (m Model) selectedSession() *session.Session {
	if len(m.filtered) == 0 {
		return nil
	}
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	s := m.filtered[m.cursor]
	return &s
}
