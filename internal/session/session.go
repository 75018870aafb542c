// Package session joins per-host tmux listings into one presentable
// view. Records are projections of remote state: rebuilt on every
// refresh, never edited in place.
package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/simon/remux/internal/manager"
	"github.com/simon/remux/internal/tmux"
)

type Session struct {
	ID           string
	Name         string
	Host         string // registry handle of the owning connection
	Created      time.Time
	LastActivity time.Time
	Windows      int
	Attached     bool
}

// ListManager returns the sessions of one connection, tagged with its
// handle.
func ListManager(ctx context.Context, host string, m *manager.Manager) ([]Session, error) {
	records, err := m.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return fromRecords(host, records), nil
}

// ListAll gathers sessions across every connected manager in the
// registry. Hosts that fail to list are skipped; one unreachable host
// must not hide the others.
func ListAll(ctx context.Context, reg *manager.Registry) []Session {
	var all []Session
	for _, handle := range reg.Handles() {
		m, ok := reg.Get(handle)
		if !ok || !m.IsActive() {
			continue
		}
		records, err := m.ListSessions(ctx)
		if err != nil {
			continue
		}
		all = append(all, fromRecords(handle, records)...)
	}
	Sort(all)
	return all
}

func fromRecords(host string, records []tmux.Session) []Session {
	sessions := make([]Session, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, Session{
			ID:           r.ID,
			Name:         r.Name,
			Host:         host,
			Created:      r.Created,
			LastActivity: r.LastActivity,
			Windows:      r.Windows,
			Attached:     r.Attached,
		})
	}
	return sessions
}

// Sort orders sessions for display: attached first, then most recent
// activity, then host and name for a stable layout.
func Sort(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Attached != sessions[j].Attached {
			return sessions[i].Attached
		}
		if !sessions[i].LastActivity.Equal(sessions[j].LastActivity) {
			return sessions[i].LastActivity.After(sessions[j].LastActivity)
		}
		if sessions[i].Host != sessions[j].Host {
			return sessions[i].Host < sessions[j].Host
		}
		return sessions[i].Name < sessions[j].Name
	})
}

// FormatDuration formats an age for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, hours)
}
