package orchestrator

import "time"

// Task is one cooperative unit of work driven by the Scheduler. Tick is
// called once per scheduler tick with the elapsed time and returns false
// once the task has finished.
type Task interface {
	Tick(dt time.Duration) bool
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(dt time.Duration) bool

func (f TaskFunc) Tick(dt time.Duration) bool { return f(dt) }

// Handle refers to a spawned task.
type Handle struct {
	task      Task
	cancelled bool
	done      bool
}

// Cancel stops the task before its next tick. Safe to call more than once.
func (h *Handle) Cancel() {
	if h != nil {
		h.cancelled = true
	}
}

// Active reports whether the task is still scheduled.
func (h *Handle) Active() bool {
	return h != nil && !h.cancelled && !h.done
}

// Scheduler drives every task on a single logical timeline. Tasks spawned
// during a tick start on the following tick, so a tick never observes a
// half-updated task list.
type Scheduler struct {
	now     time.Duration
	tasks   []*Handle
	pending []*Handle
	ticking bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Spawn schedules a task.
func (s *Scheduler) Spawn(t Task) *Handle {
	h := &Handle{task: t}
	s.pending = append(s.pending, h)
	return h
}

// After runs fn once d has elapsed. Timers share the tick: a timer spawned
// with d <= 0 fires on the next tick.
func (s *Scheduler) After(d time.Duration, fn func()) *Handle {
	remaining := d
	return s.Spawn(TaskFunc(func(dt time.Duration) bool {
		remaining -= dt
		if remaining > 0 {
			return true
		}
		fn()
		return false
	}))
}

// Tick advances the timeline by dt and runs every live task once.
func (s *Scheduler) Tick(dt time.Duration) {
	if s.ticking {
		return
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	s.now += dt
	s.tasks = append(s.tasks, s.pending...)
	s.pending = nil

	live := s.tasks[:0]
	for _, h := range s.tasks {
		if h.cancelled {
			continue
		}
		if !h.task.Tick(dt) {
			h.done = true
			continue
		}
		// The task may have cancelled itself while ticking.
		if !h.cancelled {
			live = append(live, h)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// Now returns the total time advanced so far.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Len returns the number of scheduled tasks, including ones not yet started.
func (s *Scheduler) Len() int {
	n := 0
	for _, h := range s.tasks {
		if !h.cancelled {
			n++
		}
	}
	for _, h := range s.pending {
		if !h.cancelled {
			n++
		}
	}
	return n
}

// CancelAll drops every task.
func (s *Scheduler) CancelAll() {
	for _, h := range s.tasks {
		h.cancelled = true
	}
	for _, h := range s.pending {
		h.cancelled = true
	}
	s.pending = nil
}
