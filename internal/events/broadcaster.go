package events

import (
	"strings"
	"sync"
	"sync/atomic"
)

// subscriberBuffer is the channel depth per subscriber. A full channel drops
// events for that subscriber instead of blocking the tick loop.
const subscriberBuffer = 64

// Filter selects events. A nil Filter accepts every event.
type Filter func(Event) bool

// NamePrefixes accepts events whose name starts with any of prefixes.
// Empty prefixes are ignored; with none left the result is nil.
func NamePrefixes(prefixes ...string) Filter {
	var keep []string
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	return func(e Event) bool {
		for _, p := range keep {
			if strings.HasPrefix(e.Name, p) {
				return true
			}
		}
		return false
	}
}

// Subscriber receives live events.
type Subscriber chan Event

type hub struct {
	mu      sync.RWMutex
	subs    map[Subscriber]Filter
	dropped atomic.Int64
}

var fanout = &hub{subs: make(map[Subscriber]Filter)}

// Subscribe registers a subscriber for every event.
func Subscribe() Subscriber {
	return SubscribeFiltered(nil)
}

// SubscribeFiltered registers a subscriber that only receives events
// accepted by f.
func SubscribeFiltered(f Filter) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	fanout.mu.Lock()
	fanout.subs[ch] = f
	fanout.mu.Unlock()
	return ch
}

// Unsubscribe removes sub and closes its channel. Unknown or already
// removed subscribers are ignored.
func Unsubscribe(sub Subscriber) {
	fanout.mu.Lock()
	defer fanout.mu.Unlock()
	if _, ok := fanout.subs[sub]; !ok {
		return
	}
	delete(fanout.subs, sub)
	close(sub)
}

// CloseAllSubscribers closes every subscriber channel. Called on shutdown.
func CloseAllSubscribers() {
	fanout.mu.Lock()
	defer fanout.mu.Unlock()
	for sub := range fanout.subs {
		close(sub)
	}
	fanout.subs = make(map[Subscriber]Filter)
}

func broadcast(e Event) {
	fanout.mu.RLock()
	defer fanout.mu.RUnlock()

	for sub, f := range fanout.subs {
		if f != nil && !f(e) {
			continue
		}
		select {
		case sub <- e:
		default:
			fanout.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func SubscriberCount() int {
	fanout.mu.RLock()
	defer fanout.mu.RUnlock()
	return len(fanout.subs)
}

// DroppedCount returns how many deliveries were dropped on full subscribers.
func DroppedCount() int64 {
	return fanout.dropped.Load()
}

// RecentEvents returns the last n buffered events, oldest first. n <= 0
// returns everything buffered.
func RecentEvents(n int) []Event {
	return buffer.Select(nil, n)
}

// RecentMatching returns the last n buffered events accepted by f.
func RecentMatching(n int, f Filter) []Event {
	return buffer.Select(f, n)
}
