// Package postgres is the event store for installs with a shared database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/lib/pq"

	"github.com/AaronLay10/SentientStage/internal/config"
	"github.com/AaronLay10/SentientStage/internal/storage"
)

const pingTimeout = 5 * time.Second

// Client stores events in Postgres.
type Client struct {
	db           *sql.DB
	experienceID string
}

// ConnString builds a connection URL from the standard PG* variables
// (PGHOST, PGPORT, PGUSER, PGDATABASE, PGSSLMODE). The password comes from
// PGPASSWORD or the file named by PGPASSWORD_FILE.
func ConnString() (string, error) {
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return "", err
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(envOr("PGHOST", "127.0.0.1"), envOr("PGPORT", "5432")),
		Path:   "/" + envOr("PGDATABASE", "sentient"),
	}
	user := envOr("PGUSER", "sentient")
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	q := url.Values{}
	q.Set("sslmode", envOr("PGSSLMODE", "disable"))
	q.Set("application_name", "sentient-stage")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// New connects using dsn, or ConnString when dsn is empty.
func New(dsn, experienceID string) (*Client, error) {
	if dsn == "" {
		var err error
		if dsn, err = ConnString(); err != nil {
			return nil, err
		}
	}
	return Open(dsn, experienceID)
}

// Open connects with an explicit connection string and prepares the schema.
func Open(dsn, experienceID string) (*Client, error) {
	// URL-style DSNs are checked before dialing.
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if _, err := pq.ParseURL(dsn); err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	c := &Client{db: db, experienceID: experienceID}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}
	return c, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Client) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS stage_events (
			event_id      BIGSERIAL PRIMARY KEY,
			ts            TIMESTAMPTZ NOT NULL,
			level         TEXT NOT NULL,
			event         TEXT NOT NULL,
			msg           TEXT,
			fields        JSONB,
			experience_id TEXT NOT NULL,
			session_id    TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_stage_events_ts ON stage_events(experience_id, ts DESC);
		CREATE INDEX IF NOT EXISTS idx_stage_events_session ON stage_events(session_id, ts);
	`)
	return err
}

// Append inserts an event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	fieldsJSON, err := storage.EncodeFields(fields)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(`
		INSERT INTO stage_events (ts, level, event, msg, fields, experience_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ts, level, event, storage.Nullable(msg), fieldsJSON, c.experienceID, storage.Nullable(sessionID))
	if pqErr, ok := err.(*pq.Error); ok {
		return fmt.Errorf("append %s: %s (%s)", event, pqErr.Message, pqErr.Code.Name())
	}
	return err
}

// Query returns the last N events for this experience, newest first.
func (c *Client) Query(limit int) ([]storage.EventRow, error) {
	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, experience_id, session_id
		FROM stage_events
		WHERE experience_id = $1
		ORDER BY ts DESC, event_id DESC
		LIMIT $2
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
		WHERE experience_id = $1 AND session_id = $2
		ORDER BY ts ASC, event_id ASC
	`, c.experienceID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return storage.ScanEvents(rows)
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
