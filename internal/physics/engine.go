// Package physics implements the kernel's fixed-step integrator: per-step
// force, torque, and kinematics for all floaters and the chain, stepping
// with semi-implicit Euler and using gonum/floats for the force-sum
// reduction.
package physics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/arobi/kpp-kernel/internal/chain"
	"github.com/arobi/kpp-kernel/internal/floater"
	"github.com/arobi/kpp-kernel/internal/kerr"
)

// Inputs carries the per-step tunables and the generator's reaction torque
// (broken cycle: computed from the previous step, per the pipeline's
// deterministic ordering).
type Inputs struct {
	Gravity          float64
	WaterDensity     float64
	Dt               float64
	VelocityCap      float64
	EpsilonVelocity  float64
	FlywheelInertia  float64
	GeneratorReactionTorque float64

	H1Enabled          bool
	H1VoidFraction     float64
	H1DensityReduction float64

	H2Enabled            bool
	H2ThermalCoefficient float64
	H2TemperatureDelta   float64
}

// StepResult is everything the Physics Engine emits for one step, feeding
// the Drivetrain Pipeline.
type StepResult struct {
	ChainLinearVelocity float64
	SprocketAngularVelocity float64
	NetChainForce float64
	NetChainTorque float64
}

// Engine integrates the chain/floater system one fixed step per call.
type Engine struct {
	Chain    *chain.State
	Floaters []*floater.Floater
}

// New creates an engine bound to the given chain and floaters.
func New(c *chain.State, floaters []*floater.Floater) *Engine {
	return &Engine{Chain: c, Floaters: floaters}
}

// Step advances the system by one fixed dt, returning the emitted
// kinematic/torque values or an *kerr.Error with kerr.KindCriticalSubsystemFault
// and code INTEGRATION_DIVERGENCE if the resulting speed exceeds the cap.
func (e *Engine) Step(in Inputs) (StepResult, error) {
	contributions := make([]float64, 0, len(e.Floaters))

	for _, f := range e.Floaters {
		forces := f.ComputeForces(floater.ForceOptions{
			Gravity:              in.Gravity,
			WaterDensity:         in.WaterDensity,
			EpsilonVel:           in.EpsilonVelocity,
			H1Enabled:            in.H1Enabled,
			H1DensityReduction:   in.H1DensityReduction,
			H1VoidFraction:       in.H1VoidFraction,
			H2Enabled:            in.H2Enabled,
			H2ThermalCoefficient: in.H2ThermalCoefficient,
			H2TemperatureDelta:   in.H2TemperatureDelta,
		})
		contributions = append(contributions, f.ChainContribution(forces))
	}

	netChainForce := floats.Sum(contributions)

	fGen := 0.0
	if e.Chain.SprocketRadius != 0 {
		fGen = in.GeneratorReactionTorque / e.Chain.SprocketRadius
	}

	totalFloaterMass := 0.0
	for _, f := range e.Floaters {
		totalFloaterMass += f.Mass(in.WaterDensity)
	}
	reflectedInertia := 0.0
	if e.Chain.SprocketRadius != 0 {
		reflectedInertia = in.FlywheelInertia / (e.Chain.SprocketRadius * e.Chain.SprocketRadius)
	}
	mTotal := totalFloaterMass + reflectedInertia
	if mTotal <= 0 {
		return StepResult{}, kerr.Configuration("PHYSICS_MASS_NONPOSITIVE", "total inertial mass must be positive")
	}

	accel := (netChainForce - fGen) / mTotal

	e.Chain.Advance(accel, in.Dt)

	v := e.Chain.LinearVelocity
	if math.IsNaN(v) || math.Abs(v) > in.VelocityCap {
		return StepResult{}, kerr.Critical("INTEGRATION_DIVERGENCE",
			fmt.Sprintf("chain velocity %g exceeds cap %g", v, in.VelocityCap))
	}

	for _, f := range e.Floaters {
		f.Advance(v, e.Chain.SprocketRadius, in.Dt)
	}

	omega := e.Chain.AngularVelocity()
	torque := netChainForce * e.Chain.SprocketRadius

	return StepResult{
		ChainLinearVelocity:     v,
		SprocketAngularVelocity: omega,
		NetChainForce:           netChainForce,
		NetChainTorque:          torque,
	}, nil
}
