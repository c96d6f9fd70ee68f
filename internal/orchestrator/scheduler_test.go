package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAfterFiresOnce(t *testing.T) {
	s := NewScheduler()
	fired := 0
	s.After(300*time.Millisecond, func() { fired++ })

	runScheduler(s, 200*time.Millisecond)
	assert.Equal(t, 0, fired)

	runScheduler(s, 100*time.Millisecond)
	assert.Equal(t, 1, fired)

	runScheduler(s, time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerSpawnDuringTickStartsNextTick(t *testing.T) {
	s := NewScheduler()
	var order []string

	s.Spawn(TaskFunc(func(dt time.Duration) bool {
		order = append(order, "parent")
		s.Spawn(TaskFunc(func(dt time.Duration) bool {
			order = append(order, "child")
			return false
		}))
		return false
	}))

	s.Tick(tick)
	require.Equal(t, []string{"parent"}, order)

	s.Tick(tick)
	assert.Equal(t, []string{"parent", "child"}, order)
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	h := s.After(tick, func() { fired = true })
	require.True(t, h.Active())

	h.Cancel()
	h.Cancel()
	runScheduler(s, time.Second)

	assert.False(t, fired)
	assert.False(t, h.Active())

	var nilHandle *Handle
	assert.NotPanics(t, nilHandle.Cancel)
}

func TestSchedulerCancelAll(t *testing.T) {
	s := NewScheduler()
	ticks := 0
	s.Spawn(TaskFunc(func(dt time.Duration) bool { ticks++; return true }))
	s.Tick(tick)
	s.After(time.Second, func() {})
	require.Equal(t, 2, s.Len())

	s.CancelAll()
	s.Tick(tick)

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, ticks)
	assert.Equal(t, 2*tick, s.Now())
}

func TestSchedulerTaskCancelsItself(t *testing.T) {
	s := NewScheduler()
	var h *Handle
	runs := 0
	h = s.Spawn(TaskFunc(func(dt time.Duration) bool {
		runs++
		h.Cancel()
		return true
	}))

	runScheduler(s, 500*time.Millisecond)
	assert.Equal(t, 1, runs)
}
