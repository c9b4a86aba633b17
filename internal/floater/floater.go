// Package floater models a single sealed buoyant container on the KPP
// chain and the force terms it contributes to the chain's motion.
package floater

import "math"

// FillState is the water/air state of a floater.
type FillState int

const (
	Heavy FillState = iota // water-filled
	Light                  // air-filled
)

func (s FillState) String() string {
	if s == Light {
		return "LIGHT"
	}
	return "HEAVY"
}

// Geometry is the fixed physical shape of a floater, constant for the
// kernel's lifetime.
type Geometry struct {
	Volume         float64 // m^3
	Area           float64 // m^2, cross-sectional area
	DragCoeff      float64
	ContainerMass  float64 // kg, mass of the empty shell
}

// Floater is one chain position. Mass is never stored directly — it is a
// pure function of FillState and Geometry; Velocity
// mirrors the chain's unified linear velocity by construction.
type Floater struct {
	Index     int
	Angle     float64 // radians, in [0, 2*pi)
	Velocity  float64 // m/s, signed, tangential — chain constraint
	Fill      FillState
	Geometry  Geometry

	// Event Handler bookkeeping: cleared once the floater reaches the
	// opposite half of the loop, so each zone fires at most once per
	// revolution.
	InjectedThisCycle bool
	VentedThisCycle   bool
}

// New creates a floater at the given angular position, starting HEAVY
// (water-filled), matching the chain's cold-start configuration.
func New(index int, angle float64, geom Geometry) *Floater {
	return &Floater{
		Index:    index,
		Angle:    wrap(angle),
		Fill:     Heavy,
		Geometry: geom,
	}
}

// Mass returns the floater's current mass: the container mass alone when
// LIGHT, or container mass plus displaced water mass when HEAVY.
func (f *Floater) Mass(waterDensity float64) float64 {
	if f.Fill == Light {
		return f.Geometry.ContainerMass
	}
	return f.Geometry.ContainerMass + waterDensity*f.Geometry.Volume
}

// IsAscending reports whether this floater is on the rising (air) side of
// the loop, i.e. on the side running from the bottom sprocket up to the top.
// By convention angle 0 is the bottom sprocket and angle pi is the top;
// ascending floaters occupy (0, pi), descending occupy (pi, 2*pi).
func (f *Floater) IsAscending() bool {
	return f.Angle > 0 && f.Angle < math.Pi
}

// Forces holds the force terms contributing to one floater's chain
// contribution for a single physics step.
type Forces struct {
	Buoyant float64 // F_B, N
	Weight  float64 // F_W, N
	Drag    float64 // F_D, N, opposes motion
}

// ForceOptions carries the hypothesis-tunable inputs to force computation.
type ForceOptions struct {
	Gravity        float64
	WaterDensity   float64
	EpsilonVel     float64

	H1Enabled             bool
	H1DensityReduction    float64 // fraction of void fraction subtracted from rho_eff
	H1VoidFraction        float64

	H2Enabled              bool
	H2ThermalCoefficient   float64
	H2TemperatureDelta     float64
}

// ComputeForces returns the buoyant, weight, and drag force magnitudes for
// this floater given the chain's current linear speed.
func (f *Floater) ComputeForces(opts ForceOptions) Forces {
	rhoEff := opts.WaterDensity
	if opts.H1Enabled {
		rhoEff -= opts.WaterDensity * opts.H1DensityReduction * opts.H1VoidFraction
	}

	buoyant := rhoEff * f.Geometry.Volume * opts.Gravity
	if opts.H2Enabled {
		buoyant += opts.H2ThermalCoefficient * opts.H2TemperatureDelta * f.Geometry.Volume * opts.Gravity
	}

	weight := f.Mass(opts.WaterDensity) * opts.Gravity

	v := f.Velocity
	absV := math.Abs(v)
	if absV < opts.EpsilonVel {
		absV = opts.EpsilonVel
	}
	drag := 0.5 * opts.WaterDensity * f.Geometry.DragCoeff * f.Geometry.Area * absV * v
	if f.Velocity == 0 {
		drag = 0
	}

	return Forces{Buoyant: buoyant, Weight: weight, Drag: drag}
}

// ChainContribution returns this floater's signed contribution to net
// chain force along the direction of motion:
// ascending floaters contribute (F_B - F_W - F_D) in the rise direction,
// descending ones contribute (F_W - F_B - F_D) in the fall direction.
func (f *Floater) ChainContribution(forces Forces) float64 {
	drag := math.Abs(forces.Drag)
	if f.IsAscending() {
		return forces.Buoyant - forces.Weight - drag
	}
	return forces.Weight - forces.Buoyant - drag
}

func wrap(angle float64) float64 {
	const twoPi = 2 * math.Pi
	angle = math.Mod(angle, twoPi)
	if angle < 0 {
		angle += twoPi
	}
	return angle
}

// Advance moves the floater's angular position by the given linear
// velocity over dt, wrapping into [0, 2*pi).
func (f *Floater) Advance(v, sprocketRadius, dt float64) {
	f.Velocity = v
	f.Angle = wrap(f.Angle + (v*dt)/sprocketRadius)
}
