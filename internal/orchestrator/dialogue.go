package orchestrator

import (
	"time"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// DialoguePlayer plays one dialogue sequence through the UI.
type DialoguePlayer struct {
	def   DialogueSequenceDef
	sched *Scheduler
	ui    UI

	task    *Handle
	line    int
	playing bool
	advance bool
}

// NewDialoguePlayer creates a player for def.
func NewDialoguePlayer(def DialogueSequenceDef, sched *Scheduler, ui UI) *DialoguePlayer {
	if ui == nil {
		ui = NopUI{}
	}
	return &DialoguePlayer{def: def, sched: sched, ui: ui}
}

// Playing reports whether a line is on screen or the intro delay is running.
func (d *DialoguePlayer) Playing() bool { return d.playing }

// Line returns the index of the current line.
func (d *DialoguePlayer) Line() int { return d.line }

// Play starts the sequence from the first line. An empty sequence only
// logs a warning.
func (d *DialoguePlayer) Play() {
	if len(d.def.Lines) == 0 {
		events.Emit("warn", "config.warning", "dialogue sequence has no lines", map[string]interface{}{
			"dialogue": d.def.Name,
		})
		return
	}
	if d.playing {
		return
	}
	d.playing = true
	d.line = -1
	d.advance = false
	events.Emit("info", "dialogue.started", "", map[string]interface{}{
		"dialogue": d.def.Name,
		"lines":    len(d.def.Lines),
	})

	remaining := d.def.Delay.Std()
	waitInput := false
	d.task = d.sched.Spawn(TaskFunc(func(dt time.Duration) bool {
		if !waitInput {
			remaining -= dt
		}
		for {
			if d.advance {
				d.advance = false
				remaining = 0
			} else if waitInput || remaining > 0 {
				break
			}
			d.line++
			if d.line >= len(d.def.Lines) {
				d.finish()
				return false
			}
			l := d.def.Lines[d.line]
			dur := durOr(l.Duration, DefaultLineDuration)
			waitInput = l.WaitForInput
			if !waitInput {
				remaining += dur
			}
			d.ui.ShowDialogueLine(l.Speaker, l.Text, dur, l.WaitForInput)
			events.Emit("info", "dialogue.line", "", map[string]interface{}{
				"dialogue": d.def.Name,
				"line":     d.line,
				"speaker":  l.Speaker,
			})
		}
		return true
	}))
}

// Advance ends the current line early. Lines waiting for input only move
// on through Advance.
func (d *DialoguePlayer) Advance() bool {
	if !d.playing || d.line < 0 {
		return false
	}
	d.advance = true
	return true
}

// Skip aborts the sequence and hides the dialogue UI.
func (d *DialoguePlayer) Skip() {
	if !d.playing {
		return
	}
	d.task.Cancel()
	d.playing = false
	d.ui.HideDialogue()
	events.Emit("info", "dialogue.skipped", "", map[string]interface{}{
		"dialogue": d.def.Name,
		"line":     d.line,
	})
}

func (d *DialoguePlayer) finish() {
	d.playing = false
	d.ui.HideDialogue()
	events.Emit("info", "dialogue.completed", "", map[string]interface{}{
		"dialogue": d.def.Name,
	})
}
