// Package storage defines the event row shared by the event store backends.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventRow represents an event stored in the event log.
type EventRow struct {
	EventID      int64                  `json:"event_id"`
	Timestamp    time.Time              `json:"ts"`
	Level        string                 `json:"level"`
	Event        string                 `json:"event"`
	Message      *string                `json:"msg,omitempty"`
	Fields       map[string]interface{} `json:"fields,omitempty"`
	ExperienceID string                 `json:"experience_id"`
	SessionID    *string                `json:"session_id,omitempty"`
}

// Store is implemented by the postgres and sqlite event stores.
type Store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error
	Query(limit int) ([]EventRow, error)
	QuerySession(sessionID string) ([]EventRow, error)
	Close() error
}

// Query limits shared by the backends.
const (
	DefaultQueryLimit = 200
	MaxQueryLimit     = 10000
)

// ClampLimit applies the default and maximum query limits.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

// Rows is the subset of *sql.Rows used by ScanEvents.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ScanEvents reads event rows selected as
// (event_id, ts, level, event, msg, fields, experience_id, session_id).
func ScanEvents(rows Rows) ([]EventRow, error) {
	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, sessionID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.ExperienceID, &sessionID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// EncodeFields marshals event fields for storage, returning nil for no fields.
func EncodeFields(fields map[string]interface{}) ([]byte, error) {
	if fields == nil {
		return nil, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}
	return b, nil
}

// Nullable returns nil for an empty string so optional columns store NULL.
func Nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
