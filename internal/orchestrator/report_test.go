package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/SentientStage/internal/storage"
)

func row(ts time.Time, event string, fields map[string]interface{}) storage.EventRow {
	return storage.EventRow{Timestamp: ts, Level: "info", Event: event, Fields: fields}
}

func TestSummarizeSession(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	msg := "unknown scene: Nowhere"
	errRow := row(t0.Add(3*time.Second), "session.error", nil)
	errRow.Message = &msg

	rows := []storage.EventRow{
		row(t0.Add(-time.Second), "zone.scored", map[string]interface{}{"points": 99.0}),
		row(t0, "session.started", map[string]interface{}{"session_id": "s-1"}),
		row(t0.Add(time.Second), "scene.started", map[string]interface{}{"scene": "Forest"}),
		row(t0.Add(2*time.Second), "zone.scored", map[string]interface{}{"scene": "Forest", "zone": "Cave", "points": 6.0}),
		row(t0.Add(2*time.Second), "session.score", map[string]interface{}{"score": 6.0}),
		row(t0.Add(2*time.Second), "branch.requested", map[string]interface{}{"target": "Cavern"}),
		errRow,
		row(t0.Add(4*time.Second), "scene.started", map[string]interface{}{"scene": "Cavern"}),
		row(t0.Add(5*time.Second), "session.ended", map[string]interface{}{"score": 6, "ending": "middle"}),
	}

	sum := SummarizeSession(rows)
	require.NotNil(t, sum)

	assert.Equal(t, "s-1", sum.SessionID)
	assert.Equal(t, t0, sum.StartedAt)
	require.NotNil(t, sum.EndedAt)
	assert.Equal(t, t0.Add(5*time.Second), *sum.EndedAt)
	assert.Equal(t, []string{"Forest", "Cavern"}, sum.Scenes)
	assert.Equal(t, []ZoneScore{{Scene: "Forest", Zone: "Cave", Points: 6}}, sum.Scored)
	assert.Equal(t, []string{"Cavern"}, sum.Branches)
	assert.Equal(t, []string{msg}, sum.Errors)
	assert.Equal(t, 6, sum.Score)
	assert.Equal(t, EndingMiddle, sum.Ending)
	assert.Equal(t, 8, sum.Events)
}

func TestSummarizeSessionWithoutStart(t *testing.T) {
	rows := []storage.EventRow{row(time.Now(), "scene.started", map[string]interface{}{"scene": "A"})}
	assert.Nil(t, SummarizeSession(rows))
	assert.Nil(t, SummarizeSession(nil))
}

func TestSummarizeSessionFallsBackToRowSessionID(t *testing.T) {
	id := "s-2"
	start := row(time.Now(), "session.started", nil)
	start.SessionID = &id

	sum := SummarizeSession([]storage.EventRow{start})

	require.NotNil(t, sum)
	assert.Equal(t, "s-2", sum.SessionID)
	assert.Nil(t, sum.EndedAt)
}
