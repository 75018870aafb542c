package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/simon/remux/internal/session"
)

var (
	// Adaptive colors for light/dark terminal backgrounds
	accentColor = lipgloss.AdaptiveColor{Light: "#D6249F", Dark: "#FF79C6"}
	greenColor  = lipgloss.AdaptiveColor{Light: "#116620", Dark: "#50FA7B"}
	redColor    = lipgloss.AdaptiveColor{Light: "#B31D28", Dark: "#FF5555"}
	dimColor    = lipgloss.AdaptiveColor{Light: "#777777", Dark: "#6272A4"}
	hlBgColor   = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#333333"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			PaddingLeft(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
				Background(hlBgColor)

	attachedStyle = lipgloss.NewStyle().
			Foreground(greenColor)

	detachedStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	confirmLabelStyle = lipgloss.NewStyle().
				Foreground(redColor).
				Bold(true).
				PaddingLeft(1)

	confirmKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).
			Background(redColor).
			Bold(true).
			Padding(0, 1)

	confirmDimStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	inputLabelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	previewBorderStyle = lipgloss.NewStyle().
				Foreground(dimColor)

	previewContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#444444", Dark: "#BBBBBB"})
)

// pad right-pads s to width with spaces (based on visual width, not byte count).
func pad(s string, width int) string {
	visual := lipgloss.Width(s)
	if visual >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visual)
}

func (m Model) View() string {
	if m.quitting && m.AttachTarget == "" {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("remux"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(fmt.Sprintf("  Error: %v\n\n", m.err))
	} else if len(m.sessions) == 0 {
		b.WriteString("  No sessions. Create one: /new <host:name>\n\n")
	} else {
		m.renderTable(&b)
	}

	if m.preview != nil {
		m.renderPreview(&b)
	}

	// Input line (placeholder changes based on mode)
	if m.preview != nil {
		m.input.Placeholder = "Type and press enter to send to the session..."
	} else {
		m.input.Placeholder = "Type to filter or enter command..."
	}
	b.WriteString(inputLabelStyle.Render(" > "))
	b.WriteString(m.input.View())
	b.WriteString("\n")

	// Help bar / kill confirmation share the slot to avoid layout shift.
	if m.confirmKill != nil {
		b.WriteString(confirmLabelStyle.Render(fmt.Sprintf("Kill '%s'?", m.confirmKill.SessionName)))
		b.WriteString("  ")
		b.WriteString(confirmKeyStyle.Render("Enter"))
		b.WriteString(confirmDimStyle.Render("confirm"))
		b.WriteString("  ")
		b.WriteString(confirmKeyStyle.Render("Esc"))
		b.WriteString(confirmDimStyle.Render("cancel"))
	} else if m.preview != nil {
		b.WriteString(helpStyle.Render("enter attach  type+enter send  esc close  j/k navigate  ctrl+k kill"))
	} else if strings.HasPrefix(m.input.Value(), "/new") {
		b.WriteString(helpStyle.Render("/new <host:name>  —  create a new session"))
	} else {
		b.WriteString(helpStyle.Render("enter preview  /new  j/k navigate  ctrl+k kill  q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderTable(b *strings.Builder) {
	maxVis := m.maxVisibleSessions()
	end := m.scrollOffset + maxVis
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	scrollable := len(m.filtered) > maxVis

	type rowData struct {
		host, name, windows, state, age string
	}
	rows := make([]rowData, 0, end-m.scrollOffset)
	for i := m.scrollOffset; i < end; i++ {
		s := m.filtered[i]
		name := s.Name
		if len(name) > 32 {
			name = name[:29] + "..."
		}
		state := detachedStyle.Render("detached")
		if s.Attached {
			state = attachedStyle.Render("attached")
		}
		rows = append(rows, rowData{
			host:    s.Host,
			name:    name,
			windows: fmt.Sprintf("%d", s.Windows),
			state:   state,
			age:     session.FormatDuration(time.Since(s.Created)),
		})
	}

	wHost, wName, wWin, wState := 4, 4, 3, 8
	for _, r := range rows {
		if w := lipgloss.Width(r.host); w > wHost {
			wHost = w
		}
		if w := lipgloss.Width(r.name); w > wName {
			wName = w
		}
	}

	header := "    " + pad("HOST", wHost) + "  " + pad("NAME", wName) + "  " + pad("WIN", wWin) + "  " + pad("STATE", wState) + "  AGE"
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if scrollable {
		if m.scrollOffset > 0 {
			b.WriteString(helpStyle.Render(fmt.Sprintf("    ↑ %d more", m.scrollOffset)))
		}
		b.WriteString("\n")
	}

	for ri, r := range rows {
		i := m.scrollOffset + ri
		row := " " + pad(r.host, wHost) + "  " + pad(r.name, wName) + "  " + pad(r.windows, wWin) + "  " + pad(r.state, wState) + "  " + r.age
		if i == m.cursor {
			b.WriteString(cursorStyle.Render(" >"))
			b.WriteString(selectedRowStyle.Render(row))
		} else {
			b.WriteString("  ")
			b.WriteString(row)
		}
		b.WriteString("\n")
	}

	if scrollable {
		if end < len(m.filtered) {
			b.WriteString(helpStyle.Render(fmt.Sprintf("    ↓ %d more", len(m.filtered)-end)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
}

func (m Model) renderPreview(b *strings.Builder) {
	borderTitle := fmt.Sprintf(" ─── %s:%s ", m.preview.Host, m.preview.SessionName)
	titleWidth := lipgloss.Width(borderTitle)
	remaining := m.width - titleWidth - 2
	if remaining > 0 {
		borderTitle += strings.Repeat("─", remaining)
	}
	b.WriteString(previewBorderStyle.Render(" " + borderTitle))
	b.WriteString("\n")

	if m.preview.Output != "" {
		previewLines := strings.Split(m.preview.Output, "\n")

		visibleRows := m.maxVisibleSessions()
		overhead := 9 + visibleRows
		if len(m.filtered) > visibleRows {
			overhead += 2
		}
		maxPreview := m.height - overhead
		if maxPreview < 3 {
			maxPreview = 3
		}

		// Show the last N lines (most recent output)
		start := len(previewLines) - maxPreview
		if start < 0 {
			start = 0
		}
		for _, line := range previewLines[start:] {
			b.WriteString(previewContentStyle.Render(" " + line))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(previewContentStyle.Render(" Loading..."))
		b.WriteString("\n")
	}

	borderBottom := strings.Repeat("─", max(0, m.width-2))
	b.WriteString(previewBorderStyle.Render(" " + borderBottom))
	b.WriteString("\n")
}
