package mqtt

import (
	"encoding/json"
	"fmt"
)

// RegistrationPayload represents a v1 stage controller registration message.
type RegistrationPayload struct {
	Version    int                 `json:"version"`
	Controller ControllerInfo      `json:"controller"`
	Actors     []ActorRegistration `json:"actors"`
}

// ControllerInfo contains controller metadata.
type ControllerInfo struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Firmware     string `json:"firmware"`
	UptimeMS     int64  `json:"uptime_ms"`
	HeartbeatSec int    `json:"heartbeat_sec"`
}

// ActorRegistration describes a single actor driven by the controller.
type ActorRegistration struct {
	ActorID      string      `json:"actor_id"`
	Type         string      `json:"type"`
	Capabilities []string    `json:"capabilities"`
	Cues         []string    `json:"cues"`
	Topics       ActorTopics `json:"topics"`
}

// ActorTopics defines MQTT topics for actor communication.
type ActorTopics struct {
	Publish   string `json:"publish"`
	Subscribe string `json:"subscribe"`
}

// ParseRegistration parses a registration payload from JSON bytes.
func ParseRegistration(data []byte) (*RegistrationPayload, error) {
	var payload RegistrationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid registration JSON: %w", err)
	}

	if payload.Version != 1 {
		return nil, fmt.Errorf("unsupported registration version: %d", payload.Version)
	}

	if payload.Controller.ID == "" {
		return nil, fmt.Errorf("controller.id is required")
	}

	return &payload, nil
}

// ActorSpec is what the scene graph expects of an actor.
type ActorSpec struct {
	Animated bool
	Cues     []string
}

// ValidationResult contains validation outcome.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateRegistration validates a registration payload against the actors
// the scene graph declares. Animated actors must announce the "animate"
// capability and every cue the graph uses on them.
func ValidateRegistration(payload *RegistrationPayload, specs map[string]ActorSpec) *ValidationResult {
	result := &ValidationResult{Valid: true}

	registered := make(map[string]*ActorRegistration)
	for i := range payload.Actors {
		a := &payload.Actors[i]
		if a.ActorID == "" {
			result.Errors = append(result.Errors, "actor with empty actor_id")
			result.Valid = false
			continue
		}
		registered[a.ActorID] = a
	}

	for actorID, spec := range specs {
		reg, found := registered[actorID]
		if !found {
			continue
		}

		if spec.Animated && !containsString(reg.Capabilities, "animate") {
			result.Errors = append(result.Errors, fmt.Sprintf("actor %s: missing capability animate", actorID))
			result.Valid = false
		}

		for _, cue := range spec.Cues {
			if !containsString(reg.Cues, cue) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("actor %s: cue %s not announced", actorID, cue))
			}
		}
	}

	for actorID := range registered {
		if _, ok := specs[actorID]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unrecognized actor: %s", actorID))
		}
	}

	return result
}

func containsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
