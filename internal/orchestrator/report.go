package orchestrator

import (
	"time"

	"github.com/AaronLay10/SentientStage/internal/storage"
)

// SessionSummary is a played session rebuilt from the event log. It is an
// audit view only; sessions are never resumed from it.
type SessionSummary struct {
	SessionID string      `json:"session_id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Scenes    []string    `json:"scenes"`
	Scored    []ZoneScore `json:"scored"`
	Branches  []string    `json:"branches"`
	Score     int         `json:"score"`
	Ending    Ending      `json:"ending,omitempty"`
	Errors    []string    `json:"errors,omitempty"`
	Events    int         `json:"events"`
}

// ZoneScore is one zone credit within a session.
type ZoneScore struct {
	Scene  string `json:"scene"`
	Zone   string `json:"zone"`
	Points int    `json:"points"`
}

// SummarizeSession folds the events of one session, oldest first, into a
// summary. Returns nil when rows contain no session.started event.
func SummarizeSession(rows []storage.EventRow) *SessionSummary {
	var sum *SessionSummary
	for _, row := range rows {
		if row.Event == "session.started" {
			sum = &SessionSummary{StartedAt: row.Timestamp}
			if id, ok := row.Fields["session_id"].(string); ok {
				sum.SessionID = id
			} else if row.SessionID != nil {
				sum.SessionID = *row.SessionID
			}
		}
		if sum == nil {
			continue
		}
		sum.Events++

		switch row.Event {
		case "scene.started":
			if name, ok := row.Fields["scene"].(string); ok {
				sum.Scenes = append(sum.Scenes, name)
			}
		case "zone.scored":
			zs := ZoneScore{Points: intField(row.Fields, "points")}
			zs.Scene, _ = row.Fields["scene"].(string)
			zs.Zone, _ = row.Fields["zone"].(string)
			sum.Scored = append(sum.Scored, zs)
		case "session.score":
			sum.Score = intField(row.Fields, "score")
		case "branch.requested":
			if target, ok := row.Fields["target"].(string); ok {
				sum.Branches = append(sum.Branches, target)
			}
		case "session.error":
			if row.Message != nil {
				sum.Errors = append(sum.Errors, *row.Message)
			}
		case "session.ended":
			ts := row.Timestamp
			sum.EndedAt = &ts
			sum.Score = intField(row.Fields, "score")
			if e, ok := row.Fields["ending"].(string); ok {
				sum.Ending = Ending(e)
			}
		}
	}
	return sum
}

// intField reads a numeric field that went through JSON (float64) or was
// kept in memory (int).
func intField(fields map[string]interface{}, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
