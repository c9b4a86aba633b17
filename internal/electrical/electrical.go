// Package electrical implements the Generator -> Power Electronics -> Grid
// Interface pipeline.
package electrical

import "math"

// GridSyncState is the grid interface's synchronization state.
type GridSyncState int

const (
	Unsynced GridSyncState = iota
	Synchronizing
	Synced
)

func (s GridSyncState) String() string {
	switch s {
	case Synced:
		return "SYNCED"
	case Synchronizing:
		return "SYNCHRONIZING"
	default:
		return "UNSYNCED"
	}
}

// GeneratorConfig is the fixed generator equivalent-circuit configuration.
type GeneratorConfig struct {
	SyncSpeed    float64 // rad/s
	SlipMax      float64
	RatedCurrent float64
	RatedVoltage float64
}

// PowerElectronicsConfig holds per-stage conversion efficiencies.
type PowerElectronicsConfig struct {
	RectifierEfficiency  float64
	InverterEfficiency   float64
	TransformerEfficiency float64
	FilterEfficiency     float64
	MaxCurrent           float64
}

// GridConfig holds grid interface tolerances and sync timing.
type GridConfig struct {
	FrequencyHz          float64
	VoltageTolerance     float64
	FrequencyToleranceHz float64
	SyncTimeConstant     float64
}

// Config bundles the three stages' fixed configuration.
type Config struct {
	Generator       GeneratorConfig
	PowerElectronics PowerElectronicsConfig
	Grid            GridConfig
}

// Pipeline holds the electrical subsystem's running state across steps.
type Pipeline struct {
	Config Config

	GridSync     GridSyncState
	SyncProgress float64 // [0, 1]
	Faulted      bool
	FaultReason  string
}

// New creates an electrical pipeline, grid unsynced.
func New(cfg Config) *Pipeline {
	return &Pipeline{Config: cfg, GridSync: Unsynced}
}

// Result is the pipeline's per-step output.
type Result struct {
	GeneratorTorque    float64 // tau_em, the reaction torque fed back to the drivetrain next step
	MechanicalPower    float64
	ElectricalPower    float64
	PowerFactor        float64
	Slip               float64
	OutputPowerToGrid  float64
	GridSync           GridSyncState
	Faulted            bool
	FaultReason        string
}

// Step evaluates generator, power electronics, and grid sync for one step.
// measuredFrequencyHz and measuredVoltage represent the instantaneous grid
// measurement used for sync tracking and protection checks.
func (p *Pipeline) Step(shaftOmega, loadFactor, measuredFrequencyHz, measuredVoltage, dt float64) Result {
	if loadFactor < 0 {
		loadFactor = 0
	}
	if loadFactor > 1 {
		loadFactor = 1
	}

	syncSpeed := p.Config.Generator.SyncSpeed
	slip := 0.0
	if syncSpeed != 0 {
		slip = (syncSpeed - shaftOmega) / syncSpeed
	}
	if slip < 0 {
		slip = 0
	}
	if slip > p.Config.Generator.SlipMax {
		slip = p.Config.Generator.SlipMax
	}

	current := p.Config.Generator.RatedCurrent * loadFactor * (slip / maxFloat(p.Config.Generator.SlipMax, 1e-9))
	saturation := 1.0
	if p.Config.Generator.RatedCurrent > 0 {
		utilization := current / p.Config.Generator.RatedCurrent
		if utilization > 0.8 {
			saturation = 1.0 - 0.5*(utilization-0.8)
		}
	}

	tauEM := slip * p.Config.Generator.RatedCurrent * p.Config.Generator.RatedVoltage * saturation / maxFloat(syncSpeed, 1e-9)
	mechPower := tauEM * shaftOmega

	etaSpeedLoad := 0.9 + 0.05*loadFactor
	electricalPower := mechPower * etaSpeedLoad

	powerFactor := 0.95
	if loadFactor < 0.3 {
		powerFactor = 0.95 * (loadFactor / 0.3)
	}

	outputPower := electricalPower *
		p.Config.PowerElectronics.RectifierEfficiency *
		p.Config.PowerElectronics.InverterEfficiency *
		p.Config.PowerElectronics.TransformerEfficiency *
		p.Config.PowerElectronics.FilterEfficiency

	faulted := false
	reason := ""

	voltageError := math.Abs(measuredVoltage-p.Config.Generator.RatedVoltage) / maxFloat(p.Config.Generator.RatedVoltage, 1e-9)
	if voltageError > 0.12 {
		faulted = true
		reason = "VOLTAGE_OUT_OF_RANGE"
	}
	freqError := math.Abs(measuredFrequencyHz - p.Config.Grid.FrequencyHz)
	if !faulted && freqError > 0.5 {
		faulted = true
		reason = "FREQUENCY_OUT_OF_RANGE"
	}
	if !faulted && current > p.Config.PowerElectronics.MaxCurrent && p.Config.PowerElectronics.MaxCurrent > 0 {
		faulted = true
		reason = "OVERCURRENT"
	}

	p.Faulted = faulted
	p.FaultReason = reason
	if faulted {
		outputPower = 0
	}

	withinTolerance := freqError < p.Config.Grid.FrequencyToleranceHz && voltageError < p.Config.Grid.VoltageTolerance
	tau := maxFloat(p.Config.Grid.SyncTimeConstant, 1e-9)
	if withinTolerance && !faulted {
		p.SyncProgress += dt / tau
	} else {
		p.SyncProgress -= dt / (tau * 2)
	}
	if p.SyncProgress > 1 {
		p.SyncProgress = 1
	}
	if p.SyncProgress < 0 {
		p.SyncProgress = 0
	}

	switch {
	case p.SyncProgress >= 1:
		p.GridSync = Synced
	case p.SyncProgress <= 0:
		p.GridSync = Unsynced
	default:
		p.GridSync = Synchronizing
	}

	deliveredPower := 0.0
	if p.GridSync == Synced {
		deliveredPower = outputPower
	}

	return Result{
		GeneratorTorque:   tauEM,
		MechanicalPower:   mechPower,
		ElectricalPower:   electricalPower,
		PowerFactor:       powerFactor,
		Slip:              slip,
		OutputPowerToGrid: deliveredPower,
		GridSync:          p.GridSync,
		Faulted:           faulted,
		FaultReason:       reason,
	}
}

// ForceDisconnect drives the grid interface to UNSYNCED immediately, used
// by EMERGENCY mode entry.
func (p *Pipeline) ForceDisconnect() {
	p.GridSync = Unsynced
	p.SyncProgress = 0
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
