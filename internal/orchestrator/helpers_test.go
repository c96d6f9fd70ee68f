package orchestrator

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const tick = 100 * time.Millisecond

// fakePlayer is a settable player position.
type fakePlayer struct {
	pos     mgl64.Vec3
	present bool
}

func (p *fakePlayer) PlayerPosition() (mgl64.Vec3, bool) { return p.pos, p.present }

func (p *fakePlayer) moveTo(x, y, z float64) {
	p.pos = mgl64.Vec3{x, y, z}
	p.present = true
}

// recordingUI keeps every UI call.
type recordingUI struct {
	notifications []string
	countdowns    []int
	hides         int
	lines         []string
	dialogueHides int
	indicator     map[string]bool
	zones         map[string]bool
}

func newRecordingUI() *recordingUI {
	return &recordingUI{indicator: map[string]bool{}, zones: map[string]bool{}}
}

func (u *recordingUI) ShowNotification(text string, d time.Duration) {
	u.notifications = append(u.notifications, text)
}
func (u *recordingUI) ShowCountdown(seconds int) { u.countdowns = append(u.countdowns, seconds) }
func (u *recordingUI) HideCountdown()            { u.hides++ }
func (u *recordingUI) ShowDialogueLine(speaker, text string, d time.Duration, waitForInput bool) {
	u.lines = append(u.lines, speaker+": "+text)
}
func (u *recordingUI) HideDialogue()                            { u.dialogueHides++ }
func (u *recordingUI) SetActionIndicator(scene string, v bool) { u.indicator[scene] = v }
func (u *recordingUI) SetZoneVisible(zone string, v bool)      { u.zones[zone] = v }

// recordingAnimator keeps every cue as "object:cue".
type recordingAnimator struct {
	cues []string
}

func (a *recordingAnimator) TriggerCue(objectID, cue string) {
	a.cues = append(a.cues, objectID+":"+cue)
}

func secs(s float64) Duration {
	return Duration(time.Duration(s * float64(time.Second)))
}

func secsPtr(s float64) *Duration {
	d := secs(s)
	return &d
}

func radius(r float64) *float64 { return &r }

// scene builds a scene with a 1s wait and 2s action window.
func scene(name string, index int, zones ...ZoneDef) SceneDef {
	return SceneDef{Name: name, Index: index, Wait: secs(1), Action: secs(2), Zones: zones}
}

func zoneAt(name string, points int, x, z float64) ZoneDef {
	return ZoneDef{Name: name, Points: points, Center: [3]float64{x, 0, z}, Radius: radius(2)}
}

type harness struct {
	sched    *Scheduler
	stage    *Stage
	session  *Session
	player   *fakePlayer
	ui       *recordingUI
	animator *recordingAnimator
}

func newHarness(g *ExperienceGraph) *harness {
	h := &harness{
		sched:    NewScheduler(),
		player:   &fakePlayer{},
		ui:       newRecordingUI(),
		animator: &recordingAnimator{},
	}
	h.stage = NewStage(g, h.animator, nil)
	h.session = NewSession(g, h.sched, h.stage, h.player, h.ui, DefaultSessionSettings())
	return h
}

// run advances the scheduler by d in fixed ticks.
func (h *harness) run(d time.Duration) {
	runScheduler(h.sched, d)
}

func runScheduler(s *Scheduler, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += tick {
		s.Tick(tick)
	}
}
