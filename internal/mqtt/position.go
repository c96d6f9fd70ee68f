package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientStage/internal/events"
)

type positionSample struct {
	pos mgl64.Vec3
	at  time.Time
}

// PositionFeed keeps the latest VR rig position published on each topic.
// It is written from MQTT callbacks and read from the tick loop.
type PositionFeed struct {
	mu     sync.RWMutex
	maxAge time.Duration
	now    func() time.Time
	latest map[string]positionSample
}

// NewPositionFeed creates a feed. Samples older than maxAge are stale.
func NewPositionFeed(maxAge time.Duration) *PositionFeed {
	return &PositionFeed{
		maxAge: maxAge,
		now:    time.Now,
		latest: make(map[string]positionSample),
	}
}

// Subscribe registers the feed on each topic.
func (f *PositionFeed) Subscribe(client Subscriber, topics ...string) error {
	for _, topic := range topics {
		err := client.Subscribe(topic, func(_ paho.Client, msg paho.Message) {
			if err := f.Handle(topic, msg.Payload()); err != nil {
				events.Emit("warn", "device.error", "bad rig position payload", map[string]interface{}{
					"topic": topic,
					"error": err.Error(),
				})
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Handle records a position message. The payload is either
// {"x":..,"y":..,"z":..} or [x, y, z].
func (f *PositionFeed) Handle(topic string, payload []byte) error {
	pos, err := parsePosition(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.latest[topic] = positionSample{pos: pos, at: f.now()}
	f.mu.Unlock()
	return nil
}

// Latest returns the freshest position received on topic.
func (f *PositionFeed) Latest(topic string) (mgl64.Vec3, bool) {
	f.mu.RLock()
	s, ok := f.latest[topic]
	f.mu.RUnlock()
	if !ok {
		return mgl64.Vec3{}, false
	}
	if f.maxAge > 0 && f.now().Sub(s.at) > f.maxAge {
		return mgl64.Vec3{}, false
	}
	return s.pos, true
}

// Source returns a player source bound to one topic.
func (f *PositionFeed) Source(topic string) *TopicSource {
	return &TopicSource{feed: f, topic: topic}
}

// TopicSource reads the player position from one rig topic.
type TopicSource struct {
	feed  *PositionFeed
	topic string
}

// PlayerPosition returns the latest fresh position on the topic.
func (s *TopicSource) PlayerPosition() (mgl64.Vec3, bool) {
	return s.feed.Latest(s.topic)
}

func parsePosition(payload []byte) (mgl64.Vec3, error) {
	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		Z *float64 `json:"z"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		if obj.X == nil || obj.Y == nil || obj.Z == nil {
			return mgl64.Vec3{}, fmt.Errorf("position needs x, y and z")
		}
		return mgl64.Vec3{*obj.X, *obj.Y, *obj.Z}, nil
	}

	var arr []float64
	if err := json.Unmarshal(payload, &arr); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("invalid position JSON: %w", err)
	}
	if len(arr) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("position array needs 3 values, got %d", len(arr))
	}
	return mgl64.Vec3{arr[0], arr[1], arr[2]}, nil
}
