package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// SessionSettings are the timing and ending parameters of a playthrough.
type SessionSettings struct {
	TransitionDelay      time.Duration
	GracePeriod          time.Duration
	PreSceneSettle       time.Duration
	NotificationDuration time.Duration
	LowThreshold         int
	MidThreshold         int
	WorstMessage         string
	MiddleMessage        string
	BestMessage          string
	Movement             MovementSettings
}

// DefaultSessionSettings returns the stock settings.
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		TransitionDelay:      5 * time.Second,
		GracePeriod:          500 * time.Millisecond,
		PreSceneSettle:       500 * time.Millisecond,
		NotificationDuration: 10 * time.Second,
		LowThreshold:         5,
		MidThreshold:         8,
		WorstMessage:         "The story ends in darkness.",
		MiddleMessage:        "The story ends, unresolved.",
		BestMessage:          "The story ends in light.",
		Movement:             DefaultMovementSettings(),
	}
}

// ResolveEnding maps a score to an ending: score <= low is the worst
// ending, score <= mid the middle one, anything above the best.
func ResolveEnding(score, low, mid int) Ending {
	switch {
	case score <= low:
		return EndingWorst
	case score <= mid:
		return EndingMiddle
	default:
		return EndingBest
	}
}

// SessionStatus is a point-in-time view of the session.
type SessionStatus struct {
	ID         string       `json:"session_id,omitempty"`
	Phase      SessionPhase `json:"phase"`
	Scene      string       `json:"scene,omitempty"`
	SceneIndex int          `json:"scene_index"`
	ScenePhase ScenePhase   `json:"scene_phase,omitempty"`
	Remaining  float64      `json:"remaining_sec,omitempty"`
	Score      int          `json:"score"`
	Branch     string       `json:"branch,omitempty"`
	Ending     Ending       `json:"ending,omitempty"`
	Visited    []string     `json:"visited"`
	Player     string       `json:"player_source,omitempty"`
}

// Session orchestrates one playthrough over the ordered scene list.
type Session struct {
	graph    *ExperienceGraph
	settings SessionSettings
	sched    *Scheduler
	stage    *Stage
	player   PlayerSource
	ui       UI

	movers      []*Mover
	moverByName map[string]*Mover

	id       string
	phase    SessionPhase
	index    int
	score    int
	branch   string
	terminus bool
	ending   Ending
	visited  map[string]bool
	history  []string
	current  *SceneRunner
	dialogue *DialoguePlayer
	pending  *Handle
}

// NewSession wires a session. player and ui may be nil.
func NewSession(graph *ExperienceGraph, sched *Scheduler, stage *Stage, player PlayerSource, ui UI, settings SessionSettings) *Session {
	if ui == nil {
		ui = NopUI{}
	}
	s := &Session{
		graph:       graph,
		settings:    settings,
		sched:       sched,
		stage:       stage,
		player:      player,
		ui:          ui,
		moverByName: make(map[string]*Mover),
		phase:       SessionPhaseIdle,
		index:       -1,
		visited:     make(map[string]bool),
	}
	for _, def := range graph.Movers {
		m := NewMover(def, stage, sched, settings.Movement)
		s.movers = append(s.movers, m)
		s.moverByName[def.Name] = m
	}
	return s
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Phase() SessionPhase { return s.phase }
func (s *Session) Score() int          { return s.score }
func (s *Session) Ending() Ending      { return s.ending }
func (s *Session) Branch() string      { return s.branch }
func (s *Session) Terminus() bool      { return s.terminus }

// CurrentScene returns the running scene, or nil.
func (s *Session) CurrentScene() *SceneRunner { return s.current }

// History returns the names of the scenes played, in order.
func (s *Session) History() []string {
	return append([]string{}, s.history...)
}

// Mover returns the named mover, or nil.
func (s *Session) Mover(name string) *Mover { return s.moverByName[name] }

// Start begins a playthrough at the first scene. Starting after an ended
// playthrough rewinds the stage first. With no scenes the session stays
// idle. Returns false if nothing was started.
func (s *Session) Start() bool {
	switch s.phase {
	case SessionPhaseIdle:
	case SessionPhaseEnded:
		s.rewind()
	default:
		return false
	}
	if len(s.graph.Scenes) == 0 {
		events.Emit("warn", "session.idle", "no scenes configured", nil)
		return false
	}

	s.id = uuid.NewString()
	events.SetSessionID(s.id)
	s.score = 0
	s.branch = ""
	s.terminus = false
	s.ending = EndingNone
	s.visited = make(map[string]bool)
	s.history = nil
	s.index = -1
	if t, ok := s.player.(*PlayerTable); ok {
		t.Reset()
		t.Resolve()
	}

	events.Emit("info", "session.started", "", map[string]interface{}{
		"session_id": s.id,
		"scenes":     len(s.graph.Scenes),
	})
	s.activate(0)
	return true
}

// Restart abandons the current playthrough, returns every object to its
// starting pose and starts again.
func (s *Session) Restart() bool {
	s.rewind()
	s.phase = SessionPhaseIdle
	return s.Start()
}

// AddScore adds delta to the cumulative score. Ignored once ended.
func (s *Session) AddScore(delta int) {
	if s.phase == SessionPhaseEnded {
		return
	}
	s.score += delta
	events.Emit("info", "session.score", "", map[string]interface{}{
		"delta": delta,
		"score": s.score,
	})
}

// RequestBranch fills the pending branch slot. A filled slot is never
// overwritten.
func (s *Session) RequestBranch(target string) bool {
	if s.phase == SessionPhaseEnded || s.branch != "" {
		events.Emit("info", "branch.ignored", "", map[string]interface{}{
			"target":  target,
			"pending": s.branch,
		})
		return false
	}
	s.branch = target
	return true
}

// SetBranchTerminus records whether the active scene ends its branch.
func (s *Session) SetBranchTerminus(terminus bool) {
	s.terminus = terminus
}

// AdvanceDialogue moves the current dialogue on by one line.
func (s *Session) AdvanceDialogue() bool {
	if s.dialogue == nil {
		return false
	}
	return s.dialogue.Advance()
}

// SceneCompleted resolves the next scene after a scene reports completion.
func (s *Session) SceneCompleted(r SceneReport) {
	if s.phase == SessionPhaseEnded {
		return
	}
	s.current = nil

	switch {
	case s.branch != "":
		next := s.sceneIndex(s.branch)
		if next < 0 {
			s.fail(fmt.Sprintf("branch target %q does not exist", s.branch), map[string]interface{}{
				"scene":  r.Scene,
				"target": s.branch,
			})
			return
		}
		s.transition(next)
	case s.terminus:
		s.End()
	default:
		next := (s.index + 1) % len(s.graph.Scenes)
		if next == 0 {
			s.End()
			return
		}
		s.transition(next)
	}
}

// End freezes scoring and transitions, resolves the ending and shows it.
func (s *Session) End() {
	if s.phase == SessionPhaseEnded || s.phase == SessionPhaseIdle {
		return
	}
	s.halt()
	s.phase = SessionPhaseEnded
	s.ending = ResolveEnding(s.score, s.settings.LowThreshold, s.settings.MidThreshold)

	msg := s.settings.BestMessage
	switch s.ending {
	case EndingWorst:
		msg = s.settings.WorstMessage
	case EndingMiddle:
		msg = s.settings.MiddleMessage
	}
	s.ui.ShowNotification(msg, s.settings.NotificationDuration)
	events.Emit("info", "session.ended", msg, map[string]interface{}{
		"session_id": s.id,
		"score":      s.score,
		"ending":     string(s.ending),
		"scenes":     s.History(),
	})
}

// Status returns a snapshot for operators.
func (s *Session) Status() SessionStatus {
	st := SessionStatus{
		ID:         s.id,
		Phase:      s.phase,
		SceneIndex: s.index,
		Score:      s.score,
		Branch:     s.branch,
		Ending:     s.ending,
		Visited:    s.History(),
	}
	if s.index >= 0 && s.index < len(s.graph.Scenes) {
		st.Scene = s.graph.Scenes[s.index].Name
	}
	if s.current != nil {
		st.ScenePhase = s.current.Phase()
		st.Remaining = s.current.Remaining().Seconds()
	}
	if t, ok := s.player.(*PlayerTable); ok {
		st.Player = t.Selected()
	}
	return st
}

// halt cancels the pending transition, the running scene and its dialogue.
func (s *Session) halt() {
	s.pending.Cancel()
	s.pending = nil
	if s.current != nil {
		s.current.Abort()
		s.current = nil
	}
	if s.dialogue != nil {
		s.dialogue.Skip()
		s.dialogue = nil
	}
}

// rewind drops every scheduled task, clears the mover latches and returns
// each object to its authored pose.
func (s *Session) rewind() {
	s.halt()
	s.sched.CancelAll()
	for _, m := range s.movers {
		m.Reset()
	}
	s.stage.ResetAll()
}

func (s *Session) fail(msg string, fields map[string]interface{}) {
	events.Emit("error", "session.error", msg, fields)
	s.End()
}

func (s *Session) sceneIndex(name string) int {
	for i, sc := range s.graph.Scenes {
		if sc.Name == name {
			return i
		}
	}
	return -1
}

func (s *Session) transition(next int) {
	s.phase = SessionPhaseTransition
	events.Emit("info", "scene.transition", "", map[string]interface{}{
		"from":  s.graph.Scenes[s.index].Name,
		"to":    s.graph.Scenes[next].Name,
		"delay": s.settings.TransitionDelay.Seconds(),
	})
	s.pending = s.sched.After(s.settings.TransitionDelay, func() {
		s.pending = nil
		s.activate(next)
	})
}

// activate runs the pre-scene movers bound to the scene one after another,
// waits for them to settle, then starts the scene.
func (s *Session) activate(i int) {
	def := s.graph.Scenes[i]
	if s.visited[def.Name] {
		s.fail(fmt.Sprintf("scene %q was already played", def.Name), map[string]interface{}{
			"scene": def.Name,
		})
		return
	}
	s.phase = SessionPhasePreScene
	s.index = i
	s.branch = ""
	s.terminus = false
	s.visited[def.Name] = true
	s.history = append(s.history, def.Name)

	var pre []*Mover
	for _, m := range s.movers {
		if m.ShouldExecuteForScene(def.Name) {
			pre = append(pre, m)
		}
	}
	if len(pre) == 0 {
		s.startScene(def)
		return
	}

	var runNext func(k int)
	runNext = func(k int) {
		if s.phase != SessionPhasePreScene || s.index != i {
			return
		}
		for idx := k; idx < len(pre); idx++ {
			if pre[idx].Execute(func() { runNext(idx + 1) }) {
				return
			}
		}
		s.pending = s.sched.After(s.settings.PreSceneSettle, func() {
			s.pending = nil
			s.startScene(def)
		})
	}
	runNext(0)
}

func (s *Session) startScene(def SceneDef) {
	s.phase = SessionPhasePlaying

	zones := make([]*Zone, 0, len(def.Zones))
	for _, zd := range def.Zones {
		zones = append(zones, NewZone(zd, s.lookupMover(def.Name, zd.Mover), s.ui))
	}

	s.dialogue = nil
	if def.Dialogue != "" {
		if dd := s.graph.findDialogue(def.Dialogue); dd != nil {
			s.dialogue = NewDialoguePlayer(*dd, s.sched, s.ui)
		} else {
			events.Emit("warn", "config.warning", "unknown dialogue", map[string]interface{}{
				"scene":    def.Name,
				"dialogue": def.Dialogue,
			})
		}
	}

	s.current = NewSceneRunner(def, zones, s.lookupMover(def.Name, def.DefaultMover), s.dialogue, s, s.player, s.ui, s.settings.GracePeriod)
	s.current.Begin()
	s.sched.Spawn(s.current)
}

func (s *Session) lookupMover(scene, name string) *Mover {
	if name == "" {
		return nil
	}
	m := s.moverByName[name]
	if m == nil {
		events.Emit("warn", "config.warning", "unknown mover", map[string]interface{}{
			"scene": scene,
			"mover": name,
		})
	}
	return m
}
