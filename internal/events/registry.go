package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// session
	"session.started": {},
	"session.idle":    {},
	"session.score":   {},
	"session.ended":   {},
	"session.error":   {},

	// scene
	"scene.started":        {},
	"scene.action_started": {},
	"scene.action_ended":   {},
	"scene.completed":      {},
	"scene.transition":     {},

	// zone
	"zone.entered":  {},
	"zone.scored":   {},
	"zone.movement": {},

	// branch
	"branch.requested": {},
	"branch.ignored":   {},

	// movement
	"movement.started":      {},
	"movement.step":         {},
	"movement.step_skipped": {},
	"movement.completed":    {},
	"movement.stopped":      {},
	"movement.reset":        {},

	// dialogue
	"dialogue.started":   {},
	"dialogue.line":      {},
	"dialogue.completed": {},
	"dialogue.skipped":   {},

	// configuration and collaborators
	"config.warning":  {},
	"player.missing":  {},
	"player.resolved": {},

	// operator
	"operator.start":   {},
	"operator.restart": {},
	"operator.advance": {},

	// device
	"device.connected":    {},
	"device.disconnected": {},
	"device.input":        {},
	"device.error":        {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
