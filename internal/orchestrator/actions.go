package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AaronLay10/SentientStage/internal/events"
	"github.com/AaronLay10/SentientStage/internal/mqtt"
)

// CueDispatcher publishes stage output over MQTT: animation cues and poses
// to each registered actor's command topic, UI calls to the HUD topic. It
// implements Animator, PoseSink and UI.
type CueDispatcher struct {
	client   mqtt.Publisher
	registry *mqtt.ActorRegistry
	hudTopic string

	poseFailing map[string]bool
}

// NewCueDispatcher creates a dispatcher.
func NewCueDispatcher(client mqtt.Publisher, registry *mqtt.ActorRegistry, hudTopic string) *CueDispatcher {
	return &CueDispatcher{
		client:      client,
		registry:    registry,
		hudTopic:    hudTopic,
		poseFailing: make(map[string]bool),
	}
}

// TriggerCue implements Animator.
func (d *CueDispatcher) TriggerCue(objectID, cue string) {
	_ = d.SendCue(objectID, cue)
}

// SendCue validates and publishes one cue, returning the failure.
func (d *CueDispatcher) SendCue(objectID, cue string) error {
	if d.registry == nil {
		return d.emitDeviceError(objectID, cue, "", "actor registry not available")
	}

	if err := d.registry.ValidateCue(objectID, cue); err != nil {
		return d.emitDeviceError(objectID, cue, "", err.Error())
	}

	topic := d.registry.GetCommandTopic(objectID)
	payload, err := json.Marshal(map[string]interface{}{
		"type": "cue",
		"cue":  cue,
	})
	if err != nil {
		return d.emitDeviceError(objectID, cue, topic, fmt.Sprintf("failed to marshal payload: %v", err))
	}

	if d.client == nil || !d.client.IsConnected() {
		return d.emitDeviceError(objectID, cue, topic, "MQTT client not connected")
	}

	if err := d.client.Publish(topic, payload); err != nil {
		return d.emitDeviceError(objectID, cue, topic, fmt.Sprintf("MQTT publish failed: %v", err))
	}
	return nil
}

// PublishPose implements PoseSink. Unregistered actors are skipped, and a
// failing actor is reported once until a publish succeeds again.
func (d *CueDispatcher) PublishPose(objectID string, pose Pose) {
	if d.registry == nil || d.client == nil {
		return
	}
	topic := d.registry.GetCommandTopic(objectID)
	if topic == "" {
		return
	}
	q := pose.Rotation
	payload, err := json.Marshal(map[string]interface{}{
		"type":     "pose",
		"position": [3]float64{pose.Position[0], pose.Position[1], pose.Position[2]},
		"rotation": [4]float64{q.V[0], q.V[1], q.V[2], q.W},
	})
	if err == nil {
		err = d.client.Publish(topic, payload)
	}
	if err != nil {
		if !d.poseFailing[objectID] {
			d.poseFailing[objectID] = true
			_ = d.emitDeviceError(objectID, "", topic, fmt.Sprintf("pose publish failed: %v", err))
		}
		return
	}
	delete(d.poseFailing, objectID)
}

func (d *CueDispatcher) ShowNotification(text string, dur time.Duration) {
	d.hud(map[string]interface{}{"type": "notification", "text": text, "duration_ms": dur.Milliseconds()})
}

func (d *CueDispatcher) ShowCountdown(seconds int) {
	d.hud(map[string]interface{}{"type": "countdown", "seconds": seconds})
}

func (d *CueDispatcher) HideCountdown() {
	d.hud(map[string]interface{}{"type": "countdown_hide"})
}

func (d *CueDispatcher) ShowDialogueLine(speaker, text string, dur time.Duration, waitForInput bool) {
	d.hud(map[string]interface{}{
		"type":           "dialogue",
		"speaker":        speaker,
		"text":           text,
		"duration_ms":    dur.Milliseconds(),
		"wait_for_input": waitForInput,
	})
}

func (d *CueDispatcher) HideDialogue() {
	d.hud(map[string]interface{}{"type": "dialogue_hide"})
}

func (d *CueDispatcher) SetActionIndicator(scene string, visible bool) {
	d.hud(map[string]interface{}{"type": "action_indicator", "scene": scene, "visible": visible})
}

func (d *CueDispatcher) SetZoneVisible(zone string, visible bool) {
	d.hud(map[string]interface{}{"type": "zone", "zone": zone, "visible": visible})
}

func (d *CueDispatcher) hud(msg map[string]interface{}) {
	if d.client == nil || d.hudTopic == "" {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !d.client.IsConnected() {
		return
	}
	if err := d.client.Publish(d.hudTopic, payload); err != nil {
		_ = d.emitDeviceError("hud", "", d.hudTopic, fmt.Sprintf("MQTT publish failed: %v", err))
	}
}

// emitDeviceError emits a device.error event with full context and returns an error.
func (d *CueDispatcher) emitDeviceError(actorID, cue, topic, msg string) error {
	fields := map[string]interface{}{
		"actor_id": actorID,
		"error":    msg,
	}
	if cue != "" {
		fields["cue"] = cue
	}
	if topic != "" {
		fields["topic"] = topic
	}
	events.Emit("error", "device.error", msg, fields)
	return fmt.Errorf("%s", msg)
}

// ActorSpecs lists what the graph expects each declared actor to support,
// for validating controller registrations. Animated actors need the moving
// and idle cues plus every step cue aimed at them.
func ActorSpecs(g *ExperienceGraph, settings MovementSettings) map[string]mqtt.ActorSpec {
	specs := make(map[string]mqtt.ActorSpec, len(g.Actors))
	for _, a := range g.Actors {
		spec := mqtt.ActorSpec{Animated: a.Animated}
		if a.Animated {
			spec.Cues = appendUnique(spec.Cues, settings.MovingCue)
			spec.Cues = appendUnique(spec.Cues, settings.IdleCue)
		}
		specs[a.ID] = spec
	}
	for _, m := range g.Movers {
		for _, st := range m.Steps {
			for j, id := range st.Objects {
				spec, ok := specs[id]
				if !ok || !spec.Animated || j >= len(st.Cues) {
					continue
				}
				spec.Cues = appendUnique(spec.Cues, st.Cues[j])
				specs[id] = spec
			}
		}
	}
	return specs
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
