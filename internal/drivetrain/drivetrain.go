// Package drivetrain implements the four-stage Sprocket -> Gearbox ->
// Clutch -> Flywheel pipeline.
package drivetrain

// GearStage is one gearbox reduction stage.
type GearStage struct {
	Ratio      float64
	Efficiency float64
}

// Config is the fixed drivetrain configuration.
type Config struct {
	Stages             []GearStage
	ClutchEngageEpsilon float64
	FlywheelInertia     float64
}

// Pipeline holds the drivetrain's running state across steps.
type Pipeline struct {
	Config Config

	FlywheelSpeed float64 // rad/s
	ClutchEngaged bool

	lastStageLosses []float64
}

// New creates a drivetrain pipeline at rest.
func New(cfg Config) *Pipeline {
	return &Pipeline{Config: cfg, lastStageLosses: make([]float64, len(cfg.Stages))}
}

// Result is the pipeline's per-step output, feeding the Electrical Pipeline.
type Result struct {
	SprocketAngularVelocity float64
	SprocketTorque          float64
	GearboxTorque           float64
	GearboxAngularVelocity  float64
	ClutchTorque            float64
	ClutchEngaged           bool
	FlywheelSpeed           float64
	FlywheelStoredEnergy    float64
	StageLosses             []float64
}

// Step evaluates the full pipeline given the chain's kinematics and the
// previous step's generator reaction torque, which breaks the cycle
// between the drivetrain and the electrical pipeline.
func (p *Pipeline) Step(chainVelocity, netChainForce, sprocketRadius, generatorReactionTorque, dt float64) Result {
	omega1 := 0.0
	if sprocketRadius != 0 {
		omega1 = chainVelocity / sprocketRadius
	}
	tau1 := netChainForce * sprocketRadius

	tau := tau1
	omega := omega1
	losses := make([]float64, len(p.Config.Stages))
	for idx, stage := range p.Config.Stages {
		in := tau
		tau = tau * stage.Ratio * stage.Efficiency
		losses[idx] = in*stage.Ratio - tau
		if stage.Ratio != 0 {
			omega = omega / stage.Ratio
		}
	}
	p.lastStageLosses = losses

	engageThreshold := p.FlywheelSpeed * (1 - p.Config.ClutchEngageEpsilon)
	p.ClutchEngaged = omega >= engageThreshold

	tau3 := 0.0
	if p.ClutchEngaged {
		tau3 = tau
		if tau3 < 0 {
			// reverse-torque condition: disengage immediately
			p.ClutchEngaged = false
			tau3 = 0
		}
	}

	if p.Config.FlywheelInertia > 0 {
		p.FlywheelSpeed += (tau3 - generatorReactionTorque) / p.Config.FlywheelInertia * dt
	}
	if p.FlywheelSpeed < 0 {
		p.FlywheelSpeed = 0
	}

	storedEnergy := 0.5 * p.Config.FlywheelInertia * p.FlywheelSpeed * p.FlywheelSpeed

	return Result{
		SprocketAngularVelocity: omega1,
		SprocketTorque:          tau1,
		GearboxTorque:           tau,
		GearboxAngularVelocity:  omega,
		ClutchTorque:            tau3,
		ClutchEngaged:           p.ClutchEngaged,
		FlywheelSpeed:           p.FlywheelSpeed,
		FlywheelStoredEnergy:    storedEnergy,
		StageLosses:             losses,
	}
}
