// Package sqlite is the single-file event store for installs without Postgres.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AaronLay10/SentientStage/internal/storage"
)

// Client stores events in a local SQLite database.
type Client struct {
	db           *sql.DB
	experienceID string
}

// Open opens (or creates) the database at path.
func Open(path, experienceID string) (*Client, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer; the tick loop and API share this handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	client := &Client{db: db, experienceID: experienceID}
	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}
	return client, nil
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS stage_events (
			event_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			ts            TIMESTAMP NOT NULL,
			level         TEXT NOT NULL,
			event         TEXT NOT NULL,
			msg           TEXT,
			fields        TEXT,
			experience_id TEXT NOT NULL,
			session_id    TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_stage_events_ts ON stage_events(ts);
		CREATE INDEX IF NOT EXISTS idx_stage_events_session ON stage_events(session_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	fieldsJSON, err := storage.EncodeFields(fields)
	if err != nil {
		return err
	}

	var fieldsText *string
	if fieldsJSON != nil {
		s := string(fieldsJSON)
		fieldsText = &s
	}

	_, err = c.db.Exec(`
		INSERT INTO stage_events (ts, level, event, msg, fields, experience_id, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ts.UTC(), level, event, storage.Nullable(msg), fieldsText, c.experienceID, storage.Nullable(sessionID))
	return err
}

// Query returns the last N events for this experience, newest first.
func (c *Client) Query(limit int) ([]storage.EventRow, error) {
	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, experience_id, session_id
		FROM stage_events
		WHERE experience_id = ?
		ORDER BY ts DESC, event_id DESC
		LIMIT ?
	`, c.experienceID, storage.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return storage.ScanEvents(rows)
}

// QuerySession returns every event of one session in chronological order.
func (c *Client) QuerySession(sessionID string) ([]storage.EventRow, error) {
	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, experience_id, session_id
		FROM stage_events
		WHERE experience_id = ? AND session_id = ?
		ORDER BY ts ASC, event_id ASC
	`, c.experienceID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return storage.ScanEvents(rows)
}

// Close closes the database.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
