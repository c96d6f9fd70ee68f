package mqtt

import (
	"fmt"
	"sync"
)

// RegisteredActor holds runtime information about a registered stage actor.
type RegisteredActor struct {
	ActorID      string
	ControllerID string
	Type         string
	CommandTopic string // topics.subscribe from registration
	StateTopic   string // topics.publish from registration
	Capabilities []string
	Cues         []string
}

func (a *RegisteredActor) clone() *RegisteredActor {
	cpy := *a
	cpy.Capabilities = append([]string{}, a.Capabilities...)
	cpy.Cues = append([]string{}, a.Cues...)
	return &cpy
}

// ActorRegistry maps actor IDs to their MQTT topics and supported cues.
type ActorRegistry struct {
	mu     sync.RWMutex
	actors map[string]*RegisteredActor
}

// NewActorRegistry creates a new empty actor registry.
func NewActorRegistry() *ActorRegistry {
	return &ActorRegistry{
		actors: make(map[string]*RegisteredActor),
	}
}

// Register adds or updates an actor in the registry.
func (r *ActorRegistry) Register(a *RegisteredActor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[a.ActorID] = a.clone()
}

// Unregister removes an actor from the registry.
func (r *ActorRegistry) Unregister(actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, actorID)
}

// Get returns a copy of an actor by ID, or nil if not found.
func (r *ActorRegistry) Get(actorID string) *RegisteredActor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.actors[actorID]; ok {
		return a.clone()
	}
	return nil
}

// Exists returns true if the actor is registered.
func (r *ActorRegistry) Exists(actorID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actors[actorID]
	return ok
}

// GetCommandTopic returns the command topic for an actor, or "".
func (r *ActorRegistry) GetCommandTopic(actorID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.actors[actorID]; ok {
		return a.CommandTopic
	}
	return ""
}

// HasCue returns true if the actor supports the given animation cue.
func (r *ActorRegistry) HasCue(actorID, cue string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.actors[actorID]; ok {
		return containsString(a.Cues, cue)
	}
	return false
}

// ValidateCue checks that an actor exists, has a command topic and
// supports the cue.
func (r *ActorRegistry) ValidateCue(actorID, cue string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actors[actorID]
	if !ok {
		return fmt.Errorf("actor not registered: %s", actorID)
	}

	if a.CommandTopic == "" {
		return fmt.Errorf("actor %s has no command topic", actorID)
	}

	if !containsString(a.Cues, cue) {
		return fmt.Errorf("actor %s does not support cue: %s", actorID, cue)
	}
	return nil
}

// All returns a copy of all registered actors.
func (r *ActorRegistry) All() []*RegisteredActor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*RegisteredActor, 0, len(r.actors))
	for _, a := range r.actors {
		result = append(result, a.clone())
	}
	return result
}

// RegisterFromPayload registers every actor announced by a controller.
func (r *ActorRegistry) RegisterFromPayload(payload *RegistrationPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range payload.Actors {
		r.actors[a.ActorID] = &RegisteredActor{
			ActorID:      a.ActorID,
			ControllerID: payload.Controller.ID,
			Type:         a.Type,
			CommandTopic: a.Topics.Subscribe,
			StateTopic:   a.Topics.Publish,
			Capabilities: append([]string{}, a.Capabilities...),
			Cues:         append([]string{}, a.Cues...),
		}
	}
}

// Len returns the number of registered actors.
func (r *ActorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

// Clear removes all actors from the registry.
func (r *ActorRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = make(map[string]*RegisteredActor)
}
