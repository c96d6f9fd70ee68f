package orchestrator

// ScenePhase is the lifecycle phase of one scene activation.
type ScenePhase string

const (
	ScenePhaseIdle         ScenePhase = "idle"
	ScenePhaseWaiting      ScenePhase = "waiting"
	ScenePhaseActionWindow ScenePhase = "action_window"
	ScenePhaseResolving    ScenePhase = "resolving"
	ScenePhaseDone         ScenePhase = "done"
)

// SessionPhase is the lifecycle phase of a playthrough.
type SessionPhase string

const (
	SessionPhaseIdle       SessionPhase = "idle"
	SessionPhasePreScene   SessionPhase = "pre_scene"
	SessionPhasePlaying    SessionPhase = "playing"
	SessionPhaseTransition SessionPhase = "transition"
	SessionPhaseEnded      SessionPhase = "ended"
)

// Ending is the narrative outcome resolved from the final score.
type Ending string

const (
	EndingNone   Ending = ""
	EndingWorst  Ending = "worst"
	EndingMiddle Ending = "middle"
	EndingBest   Ending = "best"
)

// SceneReport is what a scene hands back to the session on completion.
type SceneReport struct {
	Scene           string
	BranchRequested bool
	BranchTarget    string
	Terminus        bool
	ScoredZones     []string
	Points          int
}
