package orchestrator

import "time"

// ExperienceGraph is the authored scene graph, loaded from JSON or YAML.
type ExperienceGraph struct {
	Version   int                   `json:"version" yaml:"version"`
	Scenes    []SceneDef            `json:"scenes" yaml:"scenes"`
	Movers    []MoverDef            `json:"movers" yaml:"movers"`
	Actors    []ActorDef            `json:"actors" yaml:"actors"`
	Targets   map[string]PoseDef    `json:"targets" yaml:"targets"`
	Dialogues []DialogueSequenceDef `json:"dialogues" yaml:"dialogues"`
}

// SceneDef configures one timed scene.
type SceneDef struct {
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Index        int       `json:"index" yaml:"index"`
	Wait         Duration  `json:"wait" yaml:"wait"`
	Action       Duration  `json:"action" yaml:"action"`
	Zones        []ZoneDef `json:"zones" yaml:"zones"`
	DefaultMover string    `json:"default_mover,omitempty" yaml:"default_mover,omitempty"`
	DefaultNext  string    `json:"default_next,omitempty" yaml:"default_next,omitempty"`
	EndOfBranch  bool      `json:"end_of_branch,omitempty" yaml:"end_of_branch,omitempty"`
	Dialogue     string    `json:"dialogue,omitempty" yaml:"dialogue,omitempty"`
}

// ZoneDef configures a scoring zone.
type ZoneDef struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Points      int        `json:"points" yaml:"points"`
	Center      [3]float64 `json:"center" yaml:"center"`
	Radius      *float64   `json:"radius,omitempty" yaml:"radius,omitempty"`
	Mover       string     `json:"mover,omitempty" yaml:"mover,omitempty"`
	NextScene   string     `json:"next_scene,omitempty" yaml:"next_scene,omitempty"`
}

// DefaultZoneRadius applies when a zone does not set a radius.
const DefaultZoneRadius = 10.0

// RadiusOrDefault returns the detection radius.
func (z ZoneDef) RadiusOrDefault() float64 {
	if z.Radius == nil {
		return DefaultZoneRadius
	}
	return *z.Radius
}

// MoverDef configures an environment mover. When Steps is empty the
// Objects/Targets/Duration fields form a single step.
type MoverDef struct {
	Name        string    `json:"name" yaml:"name"`
	TargetScene string    `json:"target_scene,omitempty" yaml:"target_scene,omitempty"`
	Delay       *Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	Duration    *Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Curve       string    `json:"curve,omitempty" yaml:"curve,omitempty"`
	Objects     []string  `json:"objects,omitempty" yaml:"objects,omitempty"`
	Targets     []string  `json:"targets,omitempty" yaml:"targets,omitempty"`
	Steps       []StepDef `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// StepDef is one step of a movement sequence.
type StepDef struct {
	Objects           []string  `json:"objects" yaml:"objects"`
	Targets           []string  `json:"targets" yaml:"targets"`
	Duration          *Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Delay             *Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	WaitForCompletion *bool     `json:"wait_for_completion,omitempty" yaml:"wait_for_completion,omitempty"`
	Cues              []string  `json:"cues,omitempty" yaml:"cues,omitempty"`
}

// ActorDef declares a movable object and its starting pose.
type ActorDef struct {
	ID       string  `json:"id" yaml:"id"`
	Animated bool    `json:"animated" yaml:"animated"`
	Pose     PoseDef `json:"pose" yaml:"pose"`
}

// PoseDef is a position plus Euler rotation in degrees (X, Y, Z).
type PoseDef struct {
	Position [3]float64 `json:"position" yaml:"position"`
	Rotation [3]float64 `json:"rotation" yaml:"rotation"`
}

// DialogueSequenceDef is a named list of dialogue lines.
type DialogueSequenceDef struct {
	Name  string            `json:"name" yaml:"name"`
	Delay Duration          `json:"delay,omitempty" yaml:"delay,omitempty"`
	Lines []DialogueLineDef `json:"lines" yaml:"lines"`
}

// DialogueLineDef is one line of dialogue.
type DialogueLineDef struct {
	Speaker      string    `json:"speaker" yaml:"speaker"`
	Text         string    `json:"text" yaml:"text"`
	Duration     *Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	WaitForInput bool      `json:"wait_for_input,omitempty" yaml:"wait_for_input,omitempty"`
}

// Movement defaults.
const (
	DefaultMoverDelay   = 500 * time.Millisecond
	DefaultStepDuration = 2 * time.Second
	DefaultStepDelay    = 500 * time.Millisecond
	DefaultLineDuration = 4 * time.Second
)

func durOr(d *Duration, def time.Duration) time.Duration {
	if d == nil {
		return def
	}
	return d.Std()
}

func (g *ExperienceGraph) findDialogue(name string) *DialogueSequenceDef {
	for i := range g.Dialogues {
		if g.Dialogues[i].Name == name {
			return &g.Dialogues[i]
		}
	}
	return nil
}
