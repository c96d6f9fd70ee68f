package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/SentientStage/internal/config"
	"github.com/AaronLay10/SentientStage/internal/events"
)

// Clock supplies wall time to the engine loop.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// maxStep bounds one tick's dt after a stall so timers do not leap ahead.
const maxStep = 250 * time.Millisecond

// EngineDeps are the collaborators of the engine. Nil members fall back to
// no-op implementations.
type EngineDeps struct {
	Player   PlayerSource
	UI       UI
	Animator Animator
	Poses    PoseSink
	Clock    Clock
}

// Engine owns the scheduler, stage and session and drives them in real
// time. Public methods are safe for concurrent callers.
type Engine struct {
	mu       sync.Mutex
	sched    *Scheduler
	stage    *Stage
	session  *Session
	clock    Clock
	interval time.Duration
	ticks    atomic.Uint64
}

// SettingsFromConfig derives session settings from experience.yaml.
func SettingsFromConfig(cfg *config.ExperienceConfig) SessionSettings {
	s := DefaultSessionSettings()
	s.TransitionDelay = cfg.TransitionDelay()
	s.GracePeriod = cfg.GracePeriod()
	s.PreSceneSettle = cfg.PreSceneSettle()
	s.NotificationDuration = cfg.NotificationDuration()
	s.LowThreshold, s.MidThreshold = cfg.Thresholds()
	if cfg.Endings.WorstMessage != "" {
		s.WorstMessage = cfg.Endings.WorstMessage
	}
	if cfg.Endings.MiddleMessage != "" {
		s.MiddleMessage = cfg.Endings.MiddleMessage
	}
	if cfg.Endings.BestMessage != "" {
		s.BestMessage = cfg.Endings.BestMessage
	}
	if cfg.Movement.RotationSpeed > 0 {
		s.Movement.RotationSpeed = cfg.Movement.RotationSpeed
	}
	if cfg.Movement.MovingCue != "" {
		s.Movement.MovingCue = cfg.Movement.MovingCue
	}
	if cfg.Movement.IdleCue != "" {
		s.Movement.IdleCue = cfg.Movement.IdleCue
	}
	return s
}

// NewEngine builds an engine for graph ticking every interval.
func NewEngine(graph *ExperienceGraph, settings SessionSettings, interval time.Duration, deps EngineDeps) *Engine {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.UI == nil {
		deps.UI = NopUI{}
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	sched := NewScheduler()
	stage := NewStage(graph, deps.Animator, deps.Poses)
	return &Engine{
		sched:    sched,
		stage:    stage,
		session:  NewSession(graph, sched, stage, deps.Player, deps.UI, settings),
		clock:    deps.Clock,
		interval: interval,
	}
}

// Run ticks the engine until ctx is cancelled, using the measured time
// between ticks as dt.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	last := e.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := e.clock.Now()
			dt := now.Sub(last)
			last = now
			if dt > maxStep {
				dt = maxStep
			}
			e.Tick(dt)
		}
	}
}

// Tick advances the engine by dt.
func (e *Engine) Tick(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.Tick(dt)
	e.ticks.Add(1)
}

// Ticks returns the number of ticks run.
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// Tasks returns the number of live tasks on the timeline.
func (e *Engine) Tasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Len()
}

// Elapsed returns the timeline time advanced so far.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Now()
}

// Start begins a session. Returns false if one is already running or no
// scenes are configured.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	events.Emit("info", "operator.start", "", nil)
	return e.session.Start()
}

// Restart abandons any running session and starts a new one.
func (e *Engine) Restart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	events.Emit("info", "operator.restart", "", map[string]interface{}{
		"previous_session": e.session.ID(),
	})
	return e.session.Restart()
}

// End ends the running session immediately.
func (e *Engine) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.End()
}

// AdvanceDialogue moves the current dialogue line on.
func (e *Engine) AdvanceDialogue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	events.Emit("info", "operator.advance", "", nil)
	return e.session.AdvanceDialogue()
}

// Status returns a snapshot of the session.
func (e *Engine) Status() SessionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Status()
}

// Active reports whether a session is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.session.Phase()
	return p != SessionPhaseIdle && p != SessionPhaseEnded
}
