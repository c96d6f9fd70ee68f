package orchestrator

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// PlayerSource supplies the player's reference point. ok is false when no
// position is currently available.
type PlayerSource interface {
	PlayerPosition() (pos mgl64.Vec3, ok bool)
}

// Animator fires named animation cues on stage objects. Fire-and-forget.
type Animator interface {
	TriggerCue(objectID, cue string)
}

// PoseSink receives every pose change made by the movement executor.
type PoseSink interface {
	PublishPose(objectID string, pose Pose)
}

// UI is the presentation collaborator. Every call is fire-and-forget.
type UI interface {
	ShowNotification(text string, d time.Duration)
	ShowCountdown(seconds int)
	HideCountdown()
	ShowDialogueLine(speaker, text string, d time.Duration, waitForInput bool)
	HideDialogue()
	SetActionIndicator(scene string, visible bool)
	SetZoneVisible(zone string, visible bool)
}

// NopUI discards every UI call.
type NopUI struct{}

func (NopUI) ShowNotification(string, time.Duration)               {}
func (NopUI) ShowCountdown(int)                                    {}
func (NopUI) HideCountdown()                                       {}
func (NopUI) ShowDialogueLine(string, string, time.Duration, bool) {}
func (NopUI) HideDialogue()                                        {}
func (NopUI) SetActionIndicator(string, bool)                      {}
func (NopUI) SetZoneVisible(string, bool)                          {}

// NopAnimator discards every cue.
type NopAnimator struct{}

func (NopAnimator) TriggerCue(string, string) {}

// StaticSource is a fixed player position, used as the last fallback.
type StaticSource struct {
	Position mgl64.Vec3
}

func (s StaticSource) PlayerPosition() (mgl64.Vec3, bool) {
	return s.Position, true
}

// PlayerCandidate is one row of the player resolution table.
type PlayerCandidate struct {
	Name   string
	Source PlayerSource
}

// PlayerTable resolves the player reference from an ordered list of
// candidates. The first candidate with a position wins and stays selected
// until Reset; while nothing resolves, every lookup retries the table.
type PlayerTable struct {
	candidates []PlayerCandidate
	chosen     int
	missing    bool
}

// NewPlayerTable builds a resolution table. Nil sources are ignored.
func NewPlayerTable(candidates ...PlayerCandidate) *PlayerTable {
	t := &PlayerTable{chosen: -1}
	for _, c := range candidates {
		if c.Source != nil {
			t.candidates = append(t.candidates, c)
		}
	}
	return t
}

// Reset forgets the selected source. The next lookup re-resolves.
func (t *PlayerTable) Reset() {
	t.chosen = -1
	t.missing = false
}

// Resolve selects the first candidate that currently has a position.
func (t *PlayerTable) Resolve() bool {
	for i, c := range t.candidates {
		if _, ok := c.Source.PlayerPosition(); ok {
			t.chosen = i
			t.missing = false
			events.Emit("info", "player.resolved", "", map[string]interface{}{
				"source": c.Name,
			})
			return true
		}
	}
	t.reportMissing("no player source available")
	return false
}

// Selected returns the name of the chosen candidate, or "".
func (t *PlayerTable) Selected() string {
	if t.chosen < 0 {
		return ""
	}
	return t.candidates[t.chosen].Name
}

// PlayerPosition implements PlayerSource.
func (t *PlayerTable) PlayerPosition() (mgl64.Vec3, bool) {
	if t.chosen < 0 && !t.Resolve() {
		return mgl64.Vec3{}, false
	}
	c := t.candidates[t.chosen]
	pos, ok := c.Source.PlayerPosition()
	if !ok {
		t.reportMissing("player source " + c.Name + " stopped reporting")
		return mgl64.Vec3{}, false
	}
	t.missing = false
	return pos, true
}

func (t *PlayerTable) reportMissing(msg string) {
	if t.missing {
		return
	}
	t.missing = true
	fields := map[string]interface{}{}
	if t.chosen >= 0 {
		fields["source"] = t.candidates[t.chosen].Name
	}
	events.Emit("warn", "player.missing", msg, fields)
}
