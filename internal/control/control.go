// Package control implements the Control & Startup Sequencer: the
// operating-mode state machine, the nested startup phase machine, the
// fault detector, and the continuous load/pulse-timing control active
// once OPERATIONAL.
package control

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Mode is the kernel's top-level operating mode.
type Mode int

const (
	Stopped Mode = iota
	StartingMode
	Running
	Paused
	Emergency
	Fault
)

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "STOPPED"
	case StartingMode:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	case Emergency:
		return "EMERGENCY"
	case Fault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// StartupPhase is the nested phase machine active while Mode == StartingMode.
type StartupPhase int

const (
	Initialization StartupPhase = iota
	SystemChecks
	PressureBuild
	FirstInjection
	Acceleration
	Synchronization
	Operational
	Failed
)

func (p StartupPhase) String() string {
	switch p {
	case Initialization:
		return "INITIALIZATION"
	case SystemChecks:
		return "SYSTEM_CHECKS"
	case PressureBuild:
		return "PRESSURE_BUILD"
	case FirstInjection:
		return "FIRST_INJECTION"
	case Acceleration:
		return "ACCELERATION"
	case Synchronization:
		return "SYNCHRONIZATION"
	case Operational:
		return "OPERATIONAL"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Severity classifies an active fault's urgency.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// ActiveFault is one entry in the fault set reported in snapshots.
type ActiveFault struct {
	Code        string
	Description string
	Severity    Severity
}

// GateInputs are the readings the phase machine checks before advancing.
type GateInputs struct {
	TankPressure        float64
	TargetTankPressure  float64
	ComponentTempMargin float64
	MinComponentTempMargin float64
	FloaterCount        int
	MinFloaterCount     int
	ChainSpeedMeasurable bool
	FlywheelRPM          float64
	TargetFlywheelRPM    float64
	GridSynced           bool
}

// Sequencer owns mode, startup phase, fault set, and continuous control.
type Sequencer struct {
	Mode   Mode
	Phase  StartupPhase
	Faults []ActiveFault

	PhaseTimeoutSeconds float64
	phaseEnteredAt      float64 // sim time
	simTime             float64

	LoadFactor float64 // continuous load manager setpoint

	log *logrus.Logger
}

// New creates a sequencer starting STOPPED, logging via log (use logx.Noop()
// in tests that don't care about output).
func New(log *logrus.Logger, phaseTimeoutSeconds float64) *Sequencer {
	return &Sequencer{Mode: Stopped, Phase: Initialization, PhaseTimeoutSeconds: phaseTimeoutSeconds, log: log}
}

// InitiateStartup transitions STOPPED -> STARTING and resets the phase
// machine to INITIALIZATION.
func (s *Sequencer) InitiateStartup(simTime float64) error {
	if s.Mode != Stopped {
		return fmt.Errorf("initiate_startup illegal from mode %s", s.Mode)
	}
	s.Mode = StartingMode
	s.Phase = Initialization
	s.phaseEnteredAt = simTime
	s.log.WithField("mode", s.Mode.String()).Info("startup initiated")
	return nil
}

// AdvancePhase evaluates the current startup phase's gating conditions and
// advances to the next phase when satisfied, or to FAILED/EMERGENCY on
// timeout. No-op when Mode != StartingMode.
func (s *Sequencer) AdvancePhase(simTime float64, gates GateInputs) {
	if s.Mode != StartingMode {
		return
	}
	s.simTime = simTime

	if simTime-s.phaseEnteredAt > s.PhaseTimeoutSeconds {
		s.Phase = Failed
		s.enterEmergency("STARTUP_PHASE_TIMEOUT")
		return
	}

	advance := false
	switch s.Phase {
	case Initialization:
		advance = true
	case SystemChecks:
		advance = gates.FloaterCount >= gates.MinFloaterCount &&
			gates.ComponentTempMargin >= gates.MinComponentTempMargin
	case PressureBuild:
		advance = gates.TankPressure >= gates.TargetTankPressure
	case FirstInjection:
		advance = gates.ChainSpeedMeasurable
	case Acceleration:
		advance = gates.FlywheelRPM >= gates.TargetFlywheelRPM
	case Synchronization:
		advance = gates.GridSynced
	case Operational:
		s.Mode = Running
		s.log.Info("startup complete, mode RUNNING")
		return
	}

	if advance {
		s.Phase++
		s.phaseEnteredAt = simTime
		s.log.WithField("phase", s.Phase.String()).Info("startup phase advanced")
	}
}

// DetectFaults runs the per-step fault detector: NaN/out-of-range readings
// and subsystem-reported faults accumulate into the active fault set. Any
// critical fault forces a transition to EMERGENCY.
func (s *Sequencer) DetectFaults(readings map[string]float64, subsystemFaults []ActiveFault) {
	s.Faults = s.Faults[:0]

	critical := false
	for name, v := range readings {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.Faults = append(s.Faults, ActiveFault{
				Code:        "INVALID_READING",
				Description: fmt.Sprintf("%s is NaN or Inf", name),
				Severity:    SeverityCritical,
			})
			critical = true
		}
	}
	for _, f := range subsystemFaults {
		s.Faults = append(s.Faults, f)
		if f.Severity == SeverityCritical {
			critical = true
		}
	}

	if critical && s.Mode != Emergency {
		s.enterEmergency("CRITICAL_FAULT_DETECTED")
	}
}

func (s *Sequencer) enterEmergency(code string) {
	s.Mode = Emergency
	s.log.WithField("code", code).Warn("entering EMERGENCY")
}

// EmergencyStop forces an immediate transition to EMERGENCY regardless of
// current mode.
func (s *Sequencer) EmergencyStop() {
	s.enterEmergency("EMERGENCY_STOP_COMMAND")
}

// Reset clears EMERGENCY/FAULT back to STOPPED; only legal exit from
// EMERGENCY.
func (s *Sequencer) Reset() error {
	if s.Mode != Emergency && s.Mode != Fault {
		return fmt.Errorf("reset illegal from mode %s", s.Mode)
	}
	s.Mode = Stopped
	s.Phase = Initialization
	s.Faults = nil
	return nil
}

// Stop requests a clean halt, legal from any mode except EMERGENCY.
func (s *Sequencer) Stop() error {
	if s.Mode == Emergency {
		return fmt.Errorf("stop illegal from mode %s", s.Mode)
	}
	s.Mode = Stopped
	return nil
}

// Pause transitions RUNNING -> PAUSED.
func (s *Sequencer) Pause() error {
	if s.Mode != Running {
		return fmt.Errorf("pause illegal from mode %s", s.Mode)
	}
	s.Mode = Paused
	return nil
}

// Resume transitions PAUSED -> RUNNING.
func (s *Sequencer) Resume() error {
	if s.Mode != Paused {
		return fmt.Errorf("resume illegal from mode %s", s.Mode)
	}
	s.Mode = Running
	return nil
}

// TrackLoad updates the load factor setpoint toward a target power,
// active only once OPERATIONAL/RUNNING.
func (s *Sequencer) TrackLoad(currentPowerWatts, targetPowerWatts, step float64) {
	if currentPowerWatts < targetPowerWatts {
		s.LoadFactor += step
	} else if currentPowerWatts > targetPowerWatts {
		s.LoadFactor -= step
	}
	if s.LoadFactor < 0 {
		s.LoadFactor = 0
	}
	if s.LoadFactor > 1 {
		s.LoadFactor = 1
	}
}

// PulseLeadAngle computes the H3 pulse-timing offset (radians before the
// bottom zone) at which an injection should be scheduled for optimal
// energy extraction, active only when hypothesis H3 is enabled.
func PulseLeadAngle(configuredLeadAngle float64) float64 {
	return configuredLeadAngle
}
