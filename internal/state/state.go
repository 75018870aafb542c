// Package state keeps a small local history of connections and session
// operations. Credentials are never written here.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS connections (
    handle         TEXT PRIMARY KEY,
    host           TEXT NOT NULL DEFAULT '',
    user           TEXT NOT NULL DEFAULT '',
    connect_count  INTEGER NOT NULL DEFAULT 0,
    last_connected TIMESTAMP
);
CREATE TABLE IF NOT EXISTS session_log (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    handle  TEXT NOT NULL,
    session TEXT NOT NULL,
    action  TEXT NOT NULL,
    at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps a SQLite database for connection and session history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at
// $XDG_STATE_HOME/remux/state.db.
func Open() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}
	return OpenAt(filepath.Join(stateHome, "remux"))
}

// OpenAt creates or opens the history database under an explicit directory.
func OpenAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, err
	}

	// WAL mode for safe concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordConnect bumps the connect counter for a handle.
func (s *Store) RecordConnect(handle, host, user string) error {
	_, err := s.db.Exec(`
		INSERT INTO connections (handle, host, user, connect_count, last_connected)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(handle) DO UPDATE SET
			host = excluded.host,
			user = excluded.user,
			connect_count = connect_count + 1,
			last_connected = CURRENT_TIMESTAMP
	`, handle, host, user)
	return err
}

// RecordSession appends one session operation (created, killed, attached)
// to the audit log.
func (s *Store) RecordSession(handle, session, action string) error {
	_, err := s.db.Exec(
		"INSERT INTO session_log (handle, session, action) VALUES (?, ?, ?)",
		handle, session, action)
	return err
}

// ConnectionRecord is one row of connection history.
type ConnectionRecord struct {
	Handle        string
	Host          string
	User          string
	ConnectCount  int
	LastConnected time.Time
}

// History returns connections ordered by most recent first.
func (s *Store) History(limit int) ([]ConnectionRecord, error) {
	rows, err := s.db.Query(`
		SELECT handle, host, user, connect_count, last_connected
		FROM connections
		ORDER BY last_connected DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ConnectionRecord
	for rows.Next() {
		var r ConnectionRecord
		var last string
		if err := rows.Scan(&r.Handle, &r.Host, &r.User, &r.ConnectCount, &last); err != nil {
			return nil, err
		}
		r.LastConnected, _ = time.Parse("2006-01-02 15:04:05", last)
		result = append(result, r)
	}
	return result, rows.Err()
}

// SessionEvent is one row of the session audit log.
type SessionEvent struct {
	Handle  string
	Session string
	Action  string
	At      time.Time
}

// SessionLog returns the most recent session operations.
func (s *Store) SessionLog(limit int) ([]SessionEvent, error) {
	rows, err := s.db.Query(`
		SELECT handle, session, action, at
		FROM session_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var at string
		if err := rows.Scan(&e.Handle, &e.Session, &e.Action, &at); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse("2006-01-02 15:04:05", at)
		result = append(result, e)
	}
	return result, rows.Err()
}
