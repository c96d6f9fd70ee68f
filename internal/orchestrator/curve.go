package orchestrator

import "strings"

// Curve reshapes normalized time t in [0,1].
type Curve func(t float64) float64

// Easing curves available to movers.
var curves = map[string]Curve{
	"linear":      func(t float64) float64 { return t },
	"ease_in_out": func(t float64) float64 { return t * t * (3 - 2*t) },
	"ease_in":     func(t float64) float64 { return t * t },
	"ease_out":    func(t float64) float64 { return t * (2 - t) },
}

// CurveByName returns the named curve; empty selects ease_in_out.
func CurveByName(name string) (Curve, bool) {
	if name == "" {
		return curves["ease_in_out"], true
	}
	c, ok := curves[strings.ToLower(name)]
	return c, ok
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
