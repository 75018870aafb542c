// Package tmux formats tmux control commands and parses their output.
// It never touches the network itself; commands are strings handed to a
// transport, output is text handed back.
package tmux

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// listFormat asks tmux for one machine-parseable line per session.
// Fields are pipe-delimited: name, created epoch, activity epoch,
// attached count, window count.
const listFormat = "#{session_name}|#{session_created}|#{session_activity}|#{session_attached}|#{session_windows}"

// humanDateLayout is the fallback layout for hosts where a field comes
// back as a human-readable date instead of epoch seconds.
const humanDateLayout = "Mon Jan 2 15:04:05 2006"

// Session is a projection of one remote tmux session. The remote server
// is the sole source of truth; records are rebuilt wholesale on every
// listing rather than patched field by field.
type Session struct {
	ID           string
	Name         string
	Created      time.Time
	LastActivity time.Time
	Windows      int
	Attached     bool
}

// SessionID derives a stable identifier from a connection ID and a
// session name: the same session keeps its ID across refreshes of one
// connection, while the same name on two connections gets distinct IDs.
func SessionID(connID, name string) string {
	h := fnv.New64a()
	h.Write([]byte(connID))
	h.Write([]byte{0})
	h.Write([]byte(name))
	return fmt.Sprintf("%016x", h.Sum64())
}

// EscapeText prepares text for embedding inside a double-quoted command
// argument: each " is prefixed with a backslash. Nothing else is
// touched; over-sanitizing causes double-escaping on the remote shell.
func EscapeText(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// ListCommand returns the list-sessions command in the delimited format.
func ListCommand() string {
	return fmt.Sprintf(`tmux list-sessions -F "%s"`, listFormat)
}

// NewSessionCommand returns the command creating a detached session.
func NewSessionCommand(name string) string {
	return fmt.Sprintf(`tmux new-session -d -s "%s"`, EscapeText(name))
}

// AttachCommand returns the command sent as the first line over an
// interactive channel to attach to a session.
func AttachCommand(name string) string {
	return fmt.Sprintf(`tmux attach-session -t "%s"`, EscapeText(name))
}

// KillCommand returns the command terminating a session.
func KillCommand(name string) string {
	return fmt.Sprintf(`tmux kill-session -t "%s"`, EscapeText(name))
}

// SendKeysCommand returns the command typing text into a session and
// submitting it with Enter.
func SendKeysCommand(name, text string) string {
	return fmt.Sprintf(`tmux send-keys -t "%s" "%s" Enter`, EscapeText(name), EscapeText(text))
}

// HasSessionCommand returns the command probing for a session's existence.
func HasSessionCommand(name string) string {
	return fmt.Sprintf(`tmux has-session -t "%s"`, EscapeText(name))
}

// CapturePaneCommand returns the command printing the last n lines of a
// session's active pane.
func CapturePaneCommand(name string, lines int) string {
	return fmt.Sprintf(`tmux capture-pane -t "%s" -p -S -%d`, EscapeText(name), lines)
}

// IsNoServer reports whether stderr indicates that no tmux server is
// running on the remote host. That is an empty session list, not an error.
func IsNoServer(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no server running") ||
		strings.Contains(s, "error connecting to") ||
		strings.Contains(s, "no sessions")
}

// ParseSessionList parses delimited list-sessions output. Malformed
// lines are skipped so one corrupt line cannot hide the rest.
func ParseSessionList(connID, output string) []Session {
	var sessions []Session
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 5 {
			continue
		}
		name := parts[0]
		if name == "" {
			continue
		}

		attached, err := strconv.Atoi(parts[3])
		if err != nil {
			continue
		}
		windows, err := strconv.Atoi(parts[4])
		if err != nil || windows < 1 {
			continue
		}

		sessions = append(sessions, Session{
			ID:           SessionID(connID, name),
			Name:         name,
			Created:      parseTimestamp(parts[1]),
			LastActivity: parseTimestamp(parts[2]),
			Windows:      windows,
			Attached:     attached > 0,
		})
	}
	return sessions
}

// parseTimestamp accepts epoch seconds or the human-readable date tmux
// emits in some formats. Timestamps are best-effort metadata: on parse
// failure the current time is substituted rather than failing the listing.
func parseTimestamp(field string) time.Time {
	field = strings.TrimSpace(field)
	if epoch, err := strconv.ParseInt(field, 10, 64); err == nil {
		return time.Unix(epoch, 0)
	}
	if t, err := time.Parse(humanDateLayout, field); err == nil {
		return t
	}
	return time.Now()
}

var nameCounter atomic.Uint64

// GenerateSessionName returns a session name unique within this process:
// a timestamp plus a monotonic counter, never reused.
func GenerateSessionName() string {
	return fmt.Sprintf("remux-%d-%d", time.Now().Unix(), nameCounter.Add(1))
}
