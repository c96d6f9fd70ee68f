package orchestrator

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// MovementSettings are executor-wide defaults.
type MovementSettings struct {
	RotationSpeed float64 // slerp rate toward the heading, per second
	MovingCue     string
	IdleCue       string
}

// DefaultMovementSettings returns the stock executor settings.
func DefaultMovementSettings() MovementSettings {
	return MovementSettings{RotationSpeed: 5, MovingCue: "Walk", IdleCue: "Idle"}
}

type step struct {
	objects []string
	targets []string
	cues    []string
	delay   time.Duration
	dur     time.Duration
	wait    bool
}

// Mover runs a named movement sequence against the stage.
type Mover struct {
	name        string
	targetScene string
	delay       time.Duration
	curve       Curve
	steps       []step

	stage    *Stage
	sched    *Scheduler
	settings MovementSettings

	executed bool
	running  bool
	seq      *Handle
	moves    []*Handle
	onDone   func()
	home     map[string]Pose
}

// NewMover builds a mover from its definition. A mover with no explicit
// steps runs its Objects/Targets as one step that waits for completion.
func NewMover(def MoverDef, stage *Stage, sched *Scheduler, settings MovementSettings) *Mover {
	curve, ok := CurveByName(def.Curve)
	if !ok {
		events.Emit("warn", "config.warning", "unknown curve, using ease_in_out", map[string]interface{}{
			"mover": def.Name,
			"curve": def.Curve,
		})
		curve, _ = CurveByName("")
	}
	m := &Mover{
		name:        def.Name,
		targetScene: def.TargetScene,
		delay:       durOr(def.Delay, DefaultMoverDelay),
		curve:       curve,
		stage:       stage,
		sched:       sched,
		settings:    settings,
		home:        make(map[string]Pose),
	}

	if len(def.Steps) == 0 {
		m.steps = []step{{
			objects: def.Objects,
			targets: def.Targets,
			dur:     durOr(def.Duration, DefaultStepDuration),
			wait:    true,
		}}
	} else {
		for _, sd := range def.Steps {
			wait := true
			if sd.WaitForCompletion != nil {
				wait = *sd.WaitForCompletion
			}
			m.steps = append(m.steps, step{
				objects: sd.Objects,
				targets: sd.Targets,
				cues:    sd.Cues,
				delay:   durOr(sd.Delay, DefaultStepDelay),
				dur:     durOr(sd.Duration, DefaultStepDuration),
				wait:    wait,
			})
		}
	}

	for _, st := range m.steps {
		for _, id := range st.objects {
			if a := stage.Actor(id); a != nil {
				if _, seen := m.home[id]; !seen {
					m.home[id] = a.Pose
				}
			}
		}
	}
	return m
}

// Name returns the mover name.
func (m *Mover) Name() string { return m.name }

// Running reports whether the sequence is in progress.
func (m *Mover) Running() bool { return m.running }

// Executed reports whether the mover has run since the last Reset.
func (m *Mover) Executed() bool { return m.executed }

// ShouldExecuteForScene reports whether the mover is bound to run before
// the named scene and has not run yet.
func (m *Mover) ShouldExecuteForScene(scene string) bool {
	return !m.executed && m.targetScene != "" && m.targetScene == scene
}

// Execute starts the sequence. onDone (may be nil) runs when the last
// step has been issued and, if it waits, has elapsed. Returns false if the
// mover already ran or is running.
func (m *Mover) Execute(onDone func()) bool {
	if m.executed || m.running {
		return false
	}
	m.executed = true
	m.running = true
	m.onDone = onDone
	events.Emit("info", "movement.started", "", map[string]interface{}{
		"mover": m.name,
		"steps": len(m.steps),
	})
	m.seq = m.sched.Spawn(&sequenceTask{m: m, index: -1, remaining: m.delay})
	return true
}

// Stop terminates the sequence and every in-flight interpolation. Objects
// keep their last pose.
func (m *Mover) Stop() {
	for _, h := range m.moves {
		h.Cancel()
	}
	m.moves = nil
	if !m.running {
		return
	}
	m.seq.Cancel()
	m.running = false
	m.onDone = nil
	events.Emit("info", "movement.stopped", "", map[string]interface{}{"mover": m.name})
}

// Reset stops the mover, restores the original pose of each of its
// objects and clears the executed latch.
func (m *Mover) Reset() {
	m.Stop()
	for id, p := range m.home {
		if a := m.stage.Actor(id); a != nil {
			m.stage.SetPose(a, p)
		}
	}
	m.executed = false
	events.Emit("info", "movement.reset", "", map[string]interface{}{"mover": m.name})
}

func (m *Mover) finish() {
	m.running = false
	m.seq = nil
	events.Emit("info", "movement.completed", "", map[string]interface{}{"mover": m.name})
	if fn := m.onDone; fn != nil {
		m.onDone = nil
		fn()
	}
}

// startStep validates the step and spawns one interpolation per tuple.
func (m *Mover) startStep(i int) bool {
	st := m.steps[i]
	if len(st.objects) != len(st.targets) {
		events.Emit("warn", "movement.step_skipped", "objects and targets differ in length", map[string]interface{}{
			"mover":   m.name,
			"step":    i,
			"objects": len(st.objects),
			"targets": len(st.targets),
		})
		return false
	}

	events.Emit("info", "movement.step", "", map[string]interface{}{
		"mover":   m.name,
		"step":    i,
		"objects": len(st.objects),
	})

	type tuple struct {
		actor  *Actor
		target Pose
	}
	tuples := make([]tuple, 0, len(st.objects))
	for j, id := range st.objects {
		a := m.stage.Actor(id)
		target, ok := m.stage.Target(st.targets[j])
		if a == nil || !ok {
			events.Emit("warn", "config.warning", "unknown object or target in step", map[string]interface{}{
				"mover":  m.name,
				"step":   i,
				"object": id,
				"target": st.targets[j],
			})
			continue
		}
		tuples = append(tuples, tuple{actor: a, target: target})
		if j < len(st.cues) {
			m.stage.Cue(a, st.cues[j])
		}
	}

	live := m.moves[:0]
	for _, h := range m.moves {
		if h.Active() {
			live = append(live, h)
		}
	}
	m.moves = live
	for _, t := range tuples {
		m.moves = append(m.moves, m.sched.Spawn(newMoveTask(m, t.actor, t.target, st.dur)))
	}
	return true
}

// sequenceTask walks the steps: mover delay, then per step its pre-step
// delay, its start and, when waiting, its nominal duration.
type sequenceTask struct {
	m         *Mover
	index     int
	waiting   bool
	remaining time.Duration
}

func (s *sequenceTask) Tick(dt time.Duration) bool {
	s.remaining -= dt
	for s.remaining <= 0 {
		if !s.advance() {
			s.m.finish()
			return false
		}
	}
	return true
}

// advance moves to the next wait. Returns false when the sequence is over.
func (s *sequenceTask) advance() bool {
	m := s.m
	if s.index >= 0 && !s.waiting {
		// Pre-step delay elapsed.
		st := m.steps[s.index]
		if m.startStep(s.index) && st.wait {
			s.waiting = true
			s.remaining += st.dur
			return true
		}
	}
	s.waiting = false
	s.index++
	if s.index >= len(m.steps) {
		return false
	}
	s.remaining += m.steps[s.index].delay
	return true
}

// moveTask interpolates one actor toward one target pose.
type moveTask struct {
	m        *Mover
	actor    *Actor
	start    mgl64.Vec3
	target   Pose
	duration time.Duration
	elapsed  time.Duration
}

func newMoveTask(m *Mover, a *Actor, target Pose, d time.Duration) *moveTask {
	if a.Animated {
		m.stage.Cue(a, m.settings.MovingCue)
	}
	return &moveTask{m: m, actor: a, start: a.Pose.Position, target: target, duration: d}
}

func (t *moveTask) Tick(dt time.Duration) bool {
	t.elapsed += dt
	if t.elapsed >= t.duration {
		t.m.stage.SetPose(t.actor, t.target)
		if t.actor.Animated {
			t.m.stage.Cue(t.actor, t.m.settings.IdleCue)
		}
		return false
	}

	k := t.m.curve(clamp01(float64(t.elapsed) / float64(t.duration)))
	cur := t.actor.Pose
	pos := t.start.Add(t.target.Position.Sub(t.start).Mul(k))
	rot := cur.Rotation
	if look, ok := lookRotation(t.target.Position.Sub(cur.Position)); ok {
		amount := clamp01(t.m.settings.RotationSpeed * dt.Seconds())
		rot = mgl64.QuatSlerp(cur.Rotation, look, amount)
	}
	t.m.stage.SetPose(t.actor, Pose{Position: pos, Rotation: rot})
	return true
}
