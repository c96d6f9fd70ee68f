package events

import "sync"

// Ring keeps the most recent events in memory for the API and tests.
type Ring struct {
	mu    sync.RWMutex
	slots []Event
	start int
	count int
}

// NewRing creates a ring holding at most capacity events.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{slots: make([]Event, capacity)}
}

// Add appends e, evicting the oldest event when full.
func (r *Ring) Add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.slots)
	if r.count < n {
		r.slots[(r.start+r.count)%n] = e
		r.count++
		return
	}
	r.slots[r.start] = e
	r.start = (r.start + 1) % n
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Snapshot returns every buffered event, oldest first.
func (r *Ring) Snapshot() []Event {
	return r.Select(nil, 0)
}

// Select returns the last limit events accepted by f, oldest first. A nil
// filter accepts everything; limit <= 0 means no limit.
func (r *Ring) Select(f Filter, limit int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.slots)
	out := make([]Event, 0, r.count)
	for i := r.count - 1; i >= 0; i-- {
		e := r.slots[(r.start+i)%n]
		if f != nil && !f(e) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Reset drops every buffered event.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.slots)
	r.start, r.count = 0, 0
}
