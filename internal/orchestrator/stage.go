package orchestrator

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// Pose is a world position plus orientation.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func poseFromDef(d PoseDef) Pose {
	return Pose{
		Position: mgl64.Vec3{d.Position[0], d.Position[1], d.Position[2]},
		Rotation: mgl64.AnglesToQuat(
			mgl64.DegToRad(d.Rotation[0]),
			mgl64.DegToRad(d.Rotation[1]),
			mgl64.DegToRad(d.Rotation[2]),
			mgl64.XYZ,
		),
	}
}

// lookRotation returns the orientation facing dir with +Y up. ok is false
// when dir has no usable horizontal or vertical component.
func lookRotation(dir mgl64.Vec3) (mgl64.Quat, bool) {
	if dir.Len() < 1e-9 {
		return mgl64.QuatIdent(), false
	}
	fwd := dir.Normalize()
	up := mgl64.Vec3{0, 1, 0}
	right := up.Cross(fwd)
	if right.Len() < 1e-9 {
		return mgl64.QuatIdent(), false
	}
	right = right.Normalize()
	up = fwd.Cross(right)
	m := mgl64.Mat3FromCols(right, up, fwd)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize(), true
}

// Actor is a movable stage object.
type Actor struct {
	ID       string
	Animated bool
	Pose     Pose
	home     Pose
}

// Stage holds every movable object and named target pose.
type Stage struct {
	actors   map[string]*Actor
	targets  map[string]Pose
	animator Animator
	sink     PoseSink
}

// NewStage builds the stage from the graph. animator and sink may be nil.
func NewStage(g *ExperienceGraph, animator Animator, sink PoseSink) *Stage {
	if animator == nil {
		animator = NopAnimator{}
	}
	s := &Stage{
		actors:   make(map[string]*Actor),
		targets:  make(map[string]Pose),
		animator: animator,
		sink:     sink,
	}
	for _, a := range g.Actors {
		p := poseFromDef(a.Pose)
		s.actors[a.ID] = &Actor{ID: a.ID, Animated: a.Animated, Pose: p, home: p}
	}
	for id, t := range g.Targets {
		s.targets[id] = poseFromDef(t)
	}
	return s
}

// Actor returns the actor with id, or nil.
func (s *Stage) Actor(id string) *Actor {
	return s.actors[id]
}

// Target returns the named target pose.
func (s *Stage) Target(id string) (Pose, bool) {
	p, ok := s.targets[id]
	return p, ok
}

// SetPose moves an actor and forwards the new pose to the sink.
func (s *Stage) SetPose(a *Actor, p Pose) {
	a.Pose = p
	if s.sink != nil {
		s.sink.PublishPose(a.ID, p)
	}
}

// Cue fires an animation cue on an animated actor. Cues on actors without
// an animation capability are dropped.
func (s *Stage) Cue(a *Actor, cue string) {
	if cue == "" {
		return
	}
	if !a.Animated {
		events.Emit("warn", "config.warning", "cue on actor without animation", map[string]interface{}{
			"actor": a.ID,
			"cue":   cue,
		})
		return
	}
	s.animator.TriggerCue(a.ID, cue)
}

// ResetAll returns every actor to its starting pose.
func (s *Stage) ResetAll() {
	for _, a := range s.actors {
		s.SetPose(a, a.home)
	}
}
