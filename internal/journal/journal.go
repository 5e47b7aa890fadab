// Package journal records turn and timer activity in SQLite for
// after-the-fact inspection. Writes are best effort; the caller logs
// failures and never aborts a turn over them.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is an activity journal backed by SQLite. All public methods
// are safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// NewStore creates a journal at the given database path. The schema is
// created automatically on first use.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key TEXT NOT NULL,
		utterance   TEXT NOT NULL,
		intent      TEXT NOT NULL,
		spoken      TEXT NOT NULL,
		fallback    INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns (session_key);

	CREATE TABLE IF NOT EXISTS timer_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		timer_id   TEXT NOT NULL,
		event      TEXT NOT NULL,
		seconds    INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordTurn journals one completed turn.
func (s *Store) RecordTurn(sessionKey, utterance, intent, spoken string, fallback bool) error {
	fb := 0
	if fallback {
		fb = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO turns (session_key, utterance, intent, spoken, fallback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionKey, utterance, intent, spoken, fb,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// RecordTimerEvent journals a timer lifecycle event ("scheduled" or
// "fired").
func (s *Store) RecordTimerEvent(timerID, event string, seconds int) error {
	_, err := s.db.Exec(
		`INSERT INTO timer_events (timer_id, event, seconds, created_at)
		 VALUES (?, ?, ?, ?)`,
		timerID, event, seconds,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record timer event: %w", err)
	}
	return nil
}

// TurnCount returns the number of journaled turns for a session.
func (s *Store) TurnCount(sessionKey string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM turns WHERE session_key = ?`,
		sessionKey,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// TimerEventCount returns the number of journaled events of one kind.
func (s *Store) TimerEventCount(event string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM timer_events WHERE event = ?`,
		event,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count timer events: %w", err)
	}
	return n, nil
}
