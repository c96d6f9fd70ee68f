package events

import (
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscriber) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-sub:
		return e, ok
	case <-time.After(100 * time.Millisecond):
		return Event{}, false
	}
}

func TestSubscriberCountTracksSubscriptions(t *testing.T) {
	CloseAllSubscribers()

	a := Subscribe()
	b := SubscribeFiltered(NamePrefixes("zone."))
	if got := SubscriberCount(); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	Unsubscribe(a)
	Unsubscribe(a)
	if got := SubscriberCount(); got != 1 {
		t.Errorf("expected 1 subscriber after unsubscribe, got %d", got)
	}
	if _, ok := <-a; ok {
		t.Error("expected unsubscribed channel to be closed")
	}

	CloseAllSubscribers()
	if _, ok := <-b; ok {
		t.Error("expected CloseAllSubscribers to close every channel")
	}
	if got := SubscriberCount(); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	a := Subscribe()
	b := Subscribe()
	defer Unsubscribe(a)
	defer Unsubscribe(b)

	Emit("info", "scene.started", "", map[string]interface{}{"scene": "Forest"})

	for i, sub := range []Subscriber{a, b} {
		e, ok := receive(t, sub)
		if !ok {
			t.Fatalf("subscriber %d: no event", i)
		}
		if e.Name != "scene.started" || e.Fields["scene"] != "Forest" {
			t.Errorf("subscriber %d: unexpected event %+v", i, e)
		}
	}
}

func TestFilteredSubscriberSkipsOtherEvents(t *testing.T) {
	zones := SubscribeFiltered(NamePrefixes("zone.", " "))
	defer Unsubscribe(zones)

	Emit("info", "scene.started", "", nil)
	Emit("info", "zone.scored", "", map[string]interface{}{"zone": "Cave"})

	e, ok := receive(t, zones)
	if !ok {
		t.Fatal("expected the zone event")
	}
	if e.Name != "zone.scored" {
		t.Errorf("expected zone.scored, got %s", e.Name)
	}
	if _, ok := receive(t, zones); ok {
		t.Error("expected nothing else for the zone subscriber")
	}
}

func TestNamePrefixesWithNothingUsable(t *testing.T) {
	if NamePrefixes() != nil || NamePrefixes("", "  ") != nil {
		t.Error("expected nil filter without usable prefixes")
	}
}

func TestFullSubscriberDropsEvents(t *testing.T) {
	sub := Subscribe()
	defer Unsubscribe(sub)
	before := DroppedCount()

	for i := 0; i < subscriberBuffer+3; i++ {
		Emit("info", "session.score", "", nil)
	}

	if got := DroppedCount() - before; got < 3 {
		t.Errorf("expected at least 3 dropped deliveries, got %d", got)
	}
	if len(sub) != subscriberBuffer {
		t.Errorf("expected a full channel, got %d queued", len(sub))
	}
}

func TestRecentEvents(t *testing.T) {
	Clear()
	for i := 0; i < 10; i++ {
		name := "session.score"
		if i%2 == 0 {
			name = "zone.entered"
		}
		Emit("info", name, "", map[string]interface{}{"i": i})
	}

	recent := RecentEvents(5)
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent events, got %d", len(recent))
	}
	if recent[0].Fields["i"] != 5 || recent[4].Fields["i"] != 9 {
		t.Errorf("expected events 5..9 oldest first, got %v..%v", recent[0].Fields["i"], recent[4].Fields["i"])
	}
	if got := len(RecentEvents(0)); got != 10 {
		t.Errorf("expected all 10 events for n=0, got %d", got)
	}
	if got := len(RecentEvents(100)); got != 10 {
		t.Errorf("expected all 10 events for n=100, got %d", got)
	}

	zones := RecentMatching(2, NamePrefixes("zone."))
	if len(zones) != 2 || zones[0].Fields["i"] != 6 || zones[1].Fields["i"] != 8 {
		t.Errorf("expected zone events 6 and 8, got %+v", zones)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(Event{Name: "session.score", Fields: map[string]interface{}{"i": i}})
	}

	if r.Len() != 3 {
		t.Fatalf("expected 3 buffered events, got %d", r.Len())
	}
	snap := r.Snapshot()
	for j, want := range []int{2, 3, 4} {
		if snap[j].Fields["i"] != want {
			t.Errorf("slot %d: expected i=%d, got %v", j, want, snap[j].Fields["i"])
		}
	}

	r.Reset()
	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Error("expected empty ring after Reset")
	}
}
