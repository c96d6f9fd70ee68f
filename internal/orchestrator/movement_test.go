package orchestrator

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/SentientStage/internal/events"
)

func noWait() *bool {
	b := false
	return &b
}

func movementGraph(movers ...MoverDef) *ExperienceGraph {
	return &ExperienceGraph{
		Actors: []ActorDef{
			{ID: "clara", Animated: true},
			{ID: "lamp"},
		},
		Targets: map[string]PoseDef{
			"t1": {Position: [3]float64{10, 0, 0}, Rotation: [3]float64{0, 90, 0}},
			"t2": {Position: [3]float64{0, 0, 10}},
			"t3": {Position: [3]float64{-10, 0, 0}},
		},
		Movers: movers,
	}
}

type moverFixture struct {
	sched    *Scheduler
	stage    *Stage
	mover    *Mover
	animator *recordingAnimator
}

func newMoverFixture(def MoverDef) *moverFixture {
	g := movementGraph(def)
	f := &moverFixture{sched: NewScheduler(), animator: &recordingAnimator{}}
	f.stage = NewStage(g, f.animator, nil)
	f.mover = NewMover(def, f.stage, f.sched, DefaultMovementSettings())
	return f
}

func (f *moverFixture) position(id string) mgl64.Vec3 {
	return f.stage.Actor(id).Pose.Position
}

func TestMoverSkipsMismatchedStep(t *testing.T) {
	events.Clear()
	f := newMoverFixture(MoverDef{
		Name: "patrol",
		Steps: []StepDef{
			{Objects: []string{"clara", "lamp"}, Targets: []string{"t1", "t2", "t3"}},
			{Objects: []string{"clara"}, Targets: []string{"t3"}, Duration: secsPtr(1)},
		},
	})

	require.True(t, f.mover.Execute(nil))
	runScheduler(f.sched, 5*time.Second)

	assert.Len(t, events.Named("movement.step_skipped"), 1)
	assert.Len(t, events.Named("movement.completed"), 1)
	assert.InDelta(t, -10, f.position("clara").X(), 1e-9)
	assert.Equal(t, mgl64.Vec3{}, f.position("lamp"), "skipped step moved nothing")
}

func TestMoverSnapsToTargetPose(t *testing.T) {
	f := newMoverFixture(MoverDef{Name: "walk", Objects: []string{"clara"}, Targets: []string{"t1"}})
	target, _ := f.stage.Target("t1")

	f.mover.Execute(nil)
	runScheduler(f.sched, 3*time.Second)

	pose := f.stage.Actor("clara").Pose
	assert.True(t, pose.Position.ApproxEqual(target.Position))
	assert.True(t, pose.Rotation.ApproxEqualThreshold(target.Rotation, 1e-9))
	assert.False(t, f.mover.Running())
	assert.Equal(t, []string{"clara:Walk", "clara:Idle"}, f.animator.cues)
}

func TestMoverStepCuesFireBeforeMoving(t *testing.T) {
	f := newMoverFixture(MoverDef{
		Name:  "greet",
		Steps: []StepDef{{Objects: []string{"clara"}, Targets: []string{"t2"}, Cues: []string{"Wave"}}},
	})

	f.mover.Execute(nil)
	runScheduler(f.sched, 4*time.Second)

	assert.Equal(t, []string{"clara:Wave", "clara:Walk", "clara:Idle"}, f.animator.cues)
}

func TestMoverInanimateObjectsGetNoCues(t *testing.T) {
	events.Clear()
	f := newMoverFixture(MoverDef{Name: "slide", Objects: []string{"lamp"}, Targets: []string{"t2"}})

	f.mover.Execute(nil)
	runScheduler(f.sched, 3*time.Second)

	assert.Empty(t, f.animator.cues)
	assert.Empty(t, events.Named("config.warning"))
	assert.InDelta(t, 10, f.position("lamp").Z(), 1e-9)
}

func TestMoverExecutesOnce(t *testing.T) {
	f := newMoverFixture(MoverDef{Name: "walk", Objects: []string{"clara"}, Targets: []string{"t1"}})

	assert.True(t, f.mover.Execute(nil))
	assert.False(t, f.mover.Execute(nil), "running")
	runScheduler(f.sched, 3*time.Second)
	assert.False(t, f.mover.Execute(nil), "already executed")
	assert.True(t, f.mover.Executed())
}

func TestMoverStopLeavesLastPose(t *testing.T) {
	events.Clear()
	f := newMoverFixture(MoverDef{Name: "walk", Curve: "linear", Objects: []string{"clara"}, Targets: []string{"t1"}})

	f.mover.Execute(nil)
	runScheduler(f.sched, 1500*time.Millisecond)
	f.mover.Stop()
	runScheduler(f.sched, 3*time.Second)

	assert.InDelta(t, 5, f.position("clara").X(), 1e-9)
	assert.False(t, f.mover.Running())
	assert.Len(t, events.Named("movement.stopped"), 1)
	assert.Empty(t, events.Named("movement.completed"))

	f.mover.Reset()
	assert.Equal(t, mgl64.Vec3{}, f.position("clara"))
	assert.False(t, f.mover.Executed())
	assert.True(t, f.mover.Execute(nil))
}

func TestMoverNoWaitStepOverlapsNext(t *testing.T) {
	done := false
	f := newMoverFixture(MoverDef{
		Name:  "scatter",
		Delay: secsPtr(0.5),
		Steps: []StepDef{
			{Objects: []string{"clara"}, Targets: []string{"t1"}, Duration: secsPtr(2), Delay: secsPtr(0), WaitForCompletion: noWait()},
			{Objects: []string{"lamp"}, Targets: []string{"t2"}, Duration: secsPtr(1), Delay: secsPtr(0)},
		},
	})

	f.mover.Execute(func() { done = true })
	runScheduler(f.sched, 1600*time.Millisecond)

	assert.True(t, done, "sequence ends after the waiting step")
	x := f.position("clara").X()
	assert.Greater(t, x, 0.0)
	assert.Less(t, x, 10.0)

	runScheduler(f.sched, 1500*time.Millisecond)
	assert.InDelta(t, 10, f.position("clara").X(), 1e-9)
}

func TestMoverTargetScene(t *testing.T) {
	f := newMoverFixture(MoverDef{Name: "open", TargetScene: "Cavern", Objects: []string{"lamp"}, Targets: []string{"t2"}})

	assert.True(t, f.mover.ShouldExecuteForScene("Cavern"))
	assert.False(t, f.mover.ShouldExecuteForScene("Forest"))

	f.mover.Execute(nil)
	assert.False(t, f.mover.ShouldExecuteForScene("Cavern"))
}

func TestCurves(t *testing.T) {
	for _, name := range []string{"", "linear", "ease_in_out", "ease_in", "ease_out", "EASE_OUT"} {
		c, ok := CurveByName(name)
		require.True(t, ok, name)
		assert.InDelta(t, 0, c(0), 1e-12, name)
		assert.InDelta(t, 1, c(1), 1e-12, name)
	}

	c, _ := CurveByName("")
	assert.InDelta(t, 0.5, c(0.5), 1e-12)

	_, ok := CurveByName("bounce")
	assert.False(t, ok)
}

func TestLookRotation(t *testing.T) {
	q, ok := lookRotation(mgl64.Vec3{0, 0, 5})
	require.True(t, ok)
	assert.True(t, q.Rotate(mgl64.Vec3{0, 0, 1}).ApproxEqual(mgl64.Vec3{0, 0, 1}))

	q, ok = lookRotation(mgl64.Vec3{3, 0, 0})
	require.True(t, ok)
	assert.True(t, q.Rotate(mgl64.Vec3{0, 0, 1}).ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-9))

	_, ok = lookRotation(mgl64.Vec3{})
	assert.False(t, ok)
	_, ok = lookRotation(mgl64.Vec3{0, 2, 0})
	assert.False(t, ok)
}
