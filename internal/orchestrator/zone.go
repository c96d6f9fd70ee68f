package orchestrator

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// Zone is a spherical detection region worth a number of points. It may
// carry a mover, started once at the end of the action window, and a
// branch target.
type Zone struct {
	def    ZoneDef
	center mgl64.Vec3
	radius float64
	mover  *Mover
	ui     UI

	active    bool
	activated bool
	pending   bool
	triggered bool
}

// NewZone builds a zone. mover may be nil.
func NewZone(def ZoneDef, mover *Mover, ui UI) *Zone {
	if ui == nil {
		ui = NopUI{}
	}
	return &Zone{
		def:    def,
		center: mgl64.Vec3{def.Center[0], def.Center[1], def.Center[2]},
		radius: def.RadiusOrDefault(),
		mover:  mover,
		ui:     ui,
	}
}

func (z *Zone) Name() string      { return z.def.Name }
func (z *Zone) Points() int       { return z.def.Points }
func (z *Zone) NextScene() string { return z.def.NextScene }
func (z *Zone) Active() bool      { return z.active }
func (z *Zone) Activated() bool   { return z.activated }
func (z *Zone) Pending() bool     { return z.pending }
func (z *Zone) Triggered() bool   { return z.triggered }

// Activate arms the zone with cleared flags and checks the player once, so
// a player already standing inside is detected immediately.
func (z *Zone) Activate(player PlayerSource) {
	z.activated, z.pending, z.triggered = false, false, false
	z.active = true
	z.ui.SetZoneVisible(z.def.Name, true)
	if player == nil {
		return
	}
	if pos, ok := player.PlayerPosition(); ok {
		z.CheckOccupancy(pos)
	}
}

// Deactivate disarms the zone and clears every flag.
func (z *Zone) Deactivate() {
	wasActive := z.active
	z.active, z.activated, z.pending, z.triggered = false, false, false, false
	if wasActive {
		z.ui.SetZoneVisible(z.def.Name, false)
	}
}

// CheckOccupancy reports whether pos lies within the armed zone. The first
// hit of an activation marks the zone activated and queues its mover.
func (z *Zone) CheckOccupancy(pos mgl64.Vec3) bool {
	if !z.active {
		return false
	}
	if pos.Sub(z.center).Len() > z.radius {
		return false
	}
	if !z.activated {
		z.activated = true
		events.Emit("info", "zone.entered", "", map[string]interface{}{
			"zone": z.def.Name,
		})
	}
	if z.mover != nil && !z.triggered && !z.pending {
		z.pending = true
	}
	return true
}

// ConsumePendingMovement starts the queued mover, at most once per
// activation. Returns whether a mover was started.
func (z *Zone) ConsumePendingMovement() bool {
	if !z.pending || z.triggered {
		return false
	}
	z.triggered = true
	z.pending = false
	started := z.mover.Execute(nil)
	events.Emit("info", "zone.movement", "", map[string]interface{}{
		"zone":    z.def.Name,
		"mover":   z.mover.Name(),
		"started": started,
	})
	return true
}
