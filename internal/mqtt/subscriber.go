package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// ActorSubscriber manages subscriptions to actor state topics.
// It ensures idempotent subscription handling across reconnects.
type ActorSubscriber struct {
	mu         sync.RWMutex
	client     Subscriber
	registry   *ActorRegistry
	subscribed map[string]bool // topic -> subscribed
}

// NewActorSubscriber creates a new actor subscriber.
func NewActorSubscriber(client Subscriber, registry *ActorRegistry) *ActorSubscriber {
	return &ActorSubscriber{
		client:     client,
		registry:   registry,
		subscribed: make(map[string]bool),
	}
}

// SubscribeActor subscribes to an actor's state topic if not already subscribed.
func (s *ActorSubscriber) SubscribeActor(a *RegisteredActor) error {
	if a.StateTopic == "" {
		return nil
	}

	s.mu.Lock()
	if s.subscribed[a.StateTopic] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	handler := s.createHandler(a.ControllerID, a.ActorID, a.StateTopic)
	if err := s.client.Subscribe(a.StateTopic, handler); err != nil {
		return err
	}

	s.mu.Lock()
	s.subscribed[a.StateTopic] = true
	s.mu.Unlock()

	return nil
}

// SubscribeAll subscribes to every actor in the registry.
func (s *ActorSubscriber) SubscribeAll() error {
	for _, a := range s.registry.All() {
		if err := s.SubscribeActor(a); err != nil {
			events.Emit("error", "device.error", "failed to subscribe to actor state", map[string]interface{}{
				"actor_id": a.ActorID,
				"topic":    a.StateTopic,
				"error":    err.Error(),
			})
		}
	}
	return nil
}

// createHandler creates a message handler that emits device.input events.
func (s *ActorSubscriber) createHandler(controllerID, actorID, topic string) paho.MessageHandler {
	return func(client paho.Client, msg paho.Message) {
		var payload interface{}
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			payload = string(msg.Payload())
		}

		events.Emit("info", "device.input", "", map[string]interface{}{
			"controller_id": controllerID,
			"actor_id":      actorID,
			"topic":         topic,
			"payload":       payload,
		})
	}
}

// IsSubscribed returns true if the topic is already subscribed.
func (s *ActorSubscriber) IsSubscribed(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed[topic]
}

// SubscribedTopics returns a list of all subscribed topics.
func (s *ActorSubscriber) SubscribedTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]string, 0, len(s.subscribed))
	for topic := range s.subscribed {
		topics = append(topics, topic)
	}
	return topics
}

// ClearSubscriptions clears the subscription tracking.
// Call this on disconnect to allow re-subscription on reconnect.
func (s *ActorSubscriber) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = make(map[string]bool)
}

// HandleRegistration processes one controller registration: it validates the
// announced actors against specs, records them and subscribes to their
// state topics. An invalid registration is reported and not recorded.
func (s *ActorSubscriber) HandleRegistration(data []byte, specs map[string]ActorSpec) error {
	payload, err := ParseRegistration(data)
	if err != nil {
		events.Emit("error", "device.error", "invalid registration", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	result := ValidateRegistration(payload, specs)
	for _, w := range result.Warnings {
		events.Emit("warn", "config.warning", w, map[string]interface{}{
			"controller_id": payload.Controller.ID,
		})
	}
	if !result.Valid {
		events.Emit("error", "device.error", "registration rejected", map[string]interface{}{
			"controller_id": payload.Controller.ID,
			"errors":        result.Errors,
		})
		return fmt.Errorf("registration from %s rejected: %s", payload.Controller.ID, strings.Join(result.Errors, "; "))
	}

	s.registry.RegisterFromPayload(payload)
	for _, a := range payload.Actors {
		events.Emit("info", "device.connected", "", map[string]interface{}{
			"controller_id": payload.Controller.ID,
			"actor_id":      a.ActorID,
		})
		if reg := s.registry.Get(a.ActorID); reg != nil {
			if err := s.SubscribeActor(reg); err != nil {
				events.Emit("error", "device.error", "failed to subscribe to actor state", map[string]interface{}{
					"actor_id": a.ActorID,
					"topic":    reg.StateTopic,
					"error":    err.Error(),
				})
			}
		}
	}
	return nil
}

// RegistrationHandler adapts HandleRegistration to a paho handler.
func (s *ActorSubscriber) RegistrationHandler(specs map[string]ActorSpec) paho.MessageHandler {
	return func(client paho.Client, msg paho.Message) {
		_ = s.HandleRegistration(msg.Payload(), specs)
	}
}
