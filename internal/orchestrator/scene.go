package orchestrator

import (
	"math"
	"time"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// sceneHost is the part of the session a running scene reports to.
type sceneHost interface {
	AddScore(delta int)
	RequestBranch(target string) bool
	SetBranchTerminus(terminus bool)
	SceneCompleted(r SceneReport)
}

// SceneRunner drives one scene through idle, waiting, action window,
// resolving and done. It is a Task on the session scheduler.
type SceneRunner struct {
	def          SceneDef
	zones        []*Zone
	defaultMover *Mover
	dialogue     *DialoguePlayer
	host         sceneHost
	player       PlayerSource
	ui           UI
	grace        time.Duration

	phase           ScenePhase
	remaining       time.Duration
	scored          map[string]bool
	scoredOrder     []string
	points          int
	branchRequested bool
	branchTarget    string
	lastCountdown   int
}

// NewSceneRunner wires a scene. defaultMover and dialogue may be nil.
func NewSceneRunner(def SceneDef, zones []*Zone, defaultMover *Mover, dialogue *DialoguePlayer, host sceneHost, player PlayerSource, ui UI, grace time.Duration) *SceneRunner {
	if ui == nil {
		ui = NopUI{}
	}
	return &SceneRunner{
		def:          def,
		zones:        zones,
		defaultMover: defaultMover,
		dialogue:     dialogue,
		host:         host,
		player:       player,
		ui:           ui,
		grace:        grace,
		phase:        ScenePhaseIdle,
		scored:       make(map[string]bool),
	}
}

func (r *SceneRunner) Name() string      { return r.def.Name }
func (r *SceneRunner) Phase() ScenePhase { return r.phase }
func (r *SceneRunner) Zones() []*Zone    { return r.zones }

// Remaining returns the time left in the current phase.
func (r *SceneRunner) Remaining() time.Duration {
	if r.remaining < 0 {
		return 0
	}
	return r.remaining
}

// Begin enters the waiting phase. The scene then advances on each Tick.
func (r *SceneRunner) Begin() {
	if r.phase != ScenePhaseIdle {
		return
	}
	r.phase = ScenePhaseWaiting
	r.remaining = r.def.Wait.Std()
	for _, z := range r.zones {
		z.Deactivate()
	}
	r.ui.SetActionIndicator(r.def.Name, false)
	r.host.SetBranchTerminus(r.def.EndOfBranch)
	events.Emit("info", "scene.started", "", map[string]interface{}{
		"scene":    r.def.Name,
		"index":    r.def.Index,
		"terminus": r.def.EndOfBranch,
	})
	if r.dialogue != nil {
		r.dialogue.Play()
	}
}

// Tick implements Task.
func (r *SceneRunner) Tick(dt time.Duration) bool {
	switch r.phase {
	case ScenePhaseIdle, ScenePhaseDone:
		return r.phase != ScenePhaseDone
	case ScenePhaseActionWindow:
		r.showCountdown()
		r.poll()
	}
	r.remaining -= dt
	for r.remaining <= 0 && r.phase != ScenePhaseDone {
		r.advance()
	}
	return r.phase != ScenePhaseDone
}

// Abort stops the scene without reporting completion.
func (r *SceneRunner) Abort() {
	if r.phase == ScenePhaseDone {
		return
	}
	r.disarm()
	if r.dialogue != nil {
		r.dialogue.Skip()
	}
	r.phase = ScenePhaseDone
}

func (r *SceneRunner) advance() {
	switch r.phase {
	case ScenePhaseWaiting:
		r.enterActionWindow()
	case ScenePhaseActionWindow:
		r.enterResolving()
	case ScenePhaseResolving:
		r.complete()
	}
}

func (r *SceneRunner) enterActionWindow() {
	r.phase = ScenePhaseActionWindow
	r.remaining += r.def.Action.Std()
	r.scored = make(map[string]bool)
	r.scoredOrder = nil
	r.lastCountdown = -1
	for _, z := range r.zones {
		z.Activate(r.player)
	}
	r.ui.SetActionIndicator(r.def.Name, true)
	r.showCountdown()
	events.Emit("info", "scene.action_started", "", map[string]interface{}{
		"scene":    r.def.Name,
		"duration": r.def.Action.Std().Seconds(),
		"zones":    len(r.zones),
	})
}

func (r *SceneRunner) showCountdown() {
	secs := int(math.Ceil(r.Remaining().Seconds()))
	if secs == r.lastCountdown {
		return
	}
	r.lastCountdown = secs
	r.ui.ShowCountdown(secs)
}

// poll checks every zone against the player and credits each newly
// occupied zone once. The first credited zone with a branch target claims
// this scene's branch request.
func (r *SceneRunner) poll() {
	if r.player == nil {
		return
	}
	pos, ok := r.player.PlayerPosition()
	if !ok {
		return
	}
	for _, z := range r.zones {
		if !z.CheckOccupancy(pos) || r.scored[z.Name()] {
			continue
		}
		r.scored[z.Name()] = true
		r.scoredOrder = append(r.scoredOrder, z.Name())
		r.points += z.Points()
		r.host.AddScore(z.Points())
		events.Emit("info", "zone.scored", "", map[string]interface{}{
			"scene":  r.def.Name,
			"zone":   z.Name(),
			"points": z.Points(),
		})
		if z.NextScene() != "" && !r.branchRequested {
			r.requestBranch(z.NextScene(), z.Name())
		}
	}
}

func (r *SceneRunner) requestBranch(target, source string) {
	r.branchRequested = true
	if r.host.RequestBranch(target) {
		r.branchTarget = target
		events.Emit("info", "branch.requested", "", map[string]interface{}{
			"scene":  r.def.Name,
			"source": source,
			"target": target,
		})
	}
}

func (r *SceneRunner) enterResolving() {
	r.poll()
	r.phase = ScenePhaseResolving
	r.remaining += r.grace

	fired := false
	for _, z := range r.zones {
		if z.Activated() && z.ConsumePendingMovement() {
			fired = true
		}
	}
	if !fired && r.defaultMover != nil {
		r.defaultMover.Execute(nil)
	}

	r.disarm()
	events.Emit("info", "scene.action_ended", "", map[string]interface{}{
		"scene":  r.def.Name,
		"scored": append([]string{}, r.scoredOrder...),
		"points": r.points,
	})
}

func (r *SceneRunner) disarm() {
	for _, z := range r.zones {
		z.Deactivate()
	}
	r.ui.SetActionIndicator(r.def.Name, false)
	r.ui.HideCountdown()
}

func (r *SceneRunner) complete() {
	if !r.branchRequested && r.def.DefaultNext != "" {
		r.requestBranch(r.def.DefaultNext, "default_next")
	}
	r.phase = ScenePhaseDone
	report := SceneReport{
		Scene:           r.def.Name,
		BranchRequested: r.branchTarget != "",
		BranchTarget:    r.branchTarget,
		Terminus:        r.def.EndOfBranch,
		ScoredZones:     append([]string{}, r.scoredOrder...),
		Points:          r.points,
	}
	events.Emit("info", "scene.completed", "", map[string]interface{}{
		"scene":            r.def.Name,
		"branch_requested": report.BranchRequested,
		"branch_target":    report.BranchTarget,
		"terminus":         report.Terminus,
		"points":           report.Points,
	})
	r.host.SceneCompleted(report)
}
