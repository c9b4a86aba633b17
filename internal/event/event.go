// Package event implements the Event Handler: fill-state transitions
// driven by each floater's angular position relative to the bottom
// injection and top venting zones.
package event

import (
	"math"

	"github.com/arobi/kpp-kernel/internal/floater"
)

// Zones are the angular windows that trigger fill-state transitions.
type Zones struct {
	ThetaBottom float64
	ThetaTop    float64
}

// Inputs carries the per-step pneumatic readings the handler needs to gate
// injection.
type Inputs struct {
	Zones

	TankPressure       float64
	InjectionThreshold float64
	AtmosphericPressure float64
	WaterDensity        float64
	Gravity             float64
	TankDepth           float64
}

// Outcome reports what the handler did for one step.
type Outcome struct {
	InjectionsFired  int
	InjectionsDeferred int
	Ventings         int
	EnergyBooked     float64 // W = P_depth * V, strictly additive
}

// Handler evaluates zone transitions for every floater each step.
type Handler struct{}

// New creates an Event Handler.
func New() *Handler { return &Handler{} }

func inBottomZone(angle, theta float64) bool {
	return angle < theta
}

func inTopZone(angle, theta float64) bool {
	return math.Abs(angle-math.Pi) < theta
}

// Step evaluates every floater's angular position against the injection
// and venting zones, transitioning fill state and clearing per-revolution
// flags once floaters reach the opposite half of the loop.
func (h *Handler) Step(floaters []*floater.Floater, in Inputs) Outcome {
	var out Outcome

	depthPressure := in.AtmosphericPressure + in.WaterDensity*in.Gravity*in.TankDepth

	for _, f := range floaters {
		angle := f.Angle

		bottom := inBottomZone(angle, in.Zones.ThetaBottom)
		top := inTopZone(angle, in.Zones.ThetaTop)

		// The injected flag clears in the upper half of the loop (opposite
		// the bottom zone), the vented flag in the lower half (opposite the
		// top zone).
		upperHalf := math.Abs(angle-math.Pi) < math.Pi/2
		if f.InjectedThisCycle && upperHalf {
			f.InjectedThisCycle = false
		}
		if f.VentedThisCycle && !upperHalf {
			f.VentedThisCycle = false
		}

		if f.Fill == floater.Heavy && bottom && !f.InjectedThisCycle {
			if in.TankPressure >= in.InjectionThreshold {
				f.Fill = floater.Light
				f.InjectedThisCycle = true
				out.InjectionsFired++
				out.EnergyBooked += depthPressure * f.Geometry.Volume
			} else {
				out.InjectionsDeferred++
			}
			continue
		}

		if f.Fill == floater.Light && top && !f.VentedThisCycle {
			f.Fill = floater.Heavy
			f.VentedThisCycle = true
			out.Ventings++
		}
	}

	return out
}

// TriggerPulse forces an injection on the nearest bottom-zone HEAVY
// floater not yet injected this cycle, subject to the same pressure gate
// as an in-zone automatic injection. Used to service a manual
// trigger_pulse command.
func (h *Handler) TriggerPulse(floaters []*floater.Floater, in Inputs) (fired bool, deferred bool, energyBooked float64) {
	depthPressure := in.AtmosphericPressure + in.WaterDensity*in.Gravity*in.TankDepth

	var candidate *floater.Floater
	best := math.Inf(1)
	for _, f := range floaters {
		if f.Fill != floater.Heavy || f.InjectedThisCycle {
			continue
		}
		dist := math.Abs(f.Angle)
		if dist < best {
			best = dist
			candidate = f
		}
	}
	if candidate == nil {
		return false, false, 0
	}
	if in.TankPressure < in.InjectionThreshold {
		return false, true, 0
	}
	candidate.Fill = floater.Light
	candidate.InjectedThisCycle = true
	return true, false, depthPressure * candidate.Geometry.Volume
}
