package control

import (
	"testing"

	"github.com/arobi/kpp-kernel/internal/logx"
)

func readyGates() GateInputs {
	return GateInputs{
		TankPressure: 5e5, TargetTankPressure: 4e5,
		ComponentTempMargin: 30, MinComponentTempMargin: 20,
		FloaterCount: 8, MinFloaterCount: 2,
		ChainSpeedMeasurable: true,
		FlywheelRPM: 700, TargetFlywheelRPM: 600,
		GridSynced: true,
	}
}

func TestInitiateStartupIllegalFromRunning(t *testing.T) {
	s := New(logx.Noop(), 20)
	s.Mode = Running

	if err := s.InitiateStartup(0); err == nil {
		t.Fatal("expected error initiating startup from RUNNING")
	}
}

func TestStartupPhaseProgressesToOperational(t *testing.T) {
	s := New(logx.Noop(), 20)
	if err := s.InitiateStartup(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	simTime := 0.0
	for i := 0; i < len(orderedPhases); i++ {
		s.AdvancePhase(simTime, readyGates())
		simTime += 1.0
	}

	if s.Mode != Running {
		t.Fatalf("expected mode RUNNING after full phase progression, got %s", s.Mode)
	}
}

var orderedPhases = []StartupPhase{
	Initialization, SystemChecks, PressureBuild, FirstInjection, Acceleration, Synchronization, Operational,
}

func TestStartupTimeoutEntersEmergency(t *testing.T) {
	s := New(logx.Noop(), 5)
	s.InitiateStartup(0)

	s.AdvancePhase(100, GateInputs{}) // far past timeout, gates not satisfied

	if s.Mode != Emergency {
		t.Fatalf("expected EMERGENCY after phase timeout, got %s", s.Mode)
	}
}

func TestEmergencyStopReachableFromAnyMode(t *testing.T) {
	for _, m := range []Mode{Stopped, StartingMode, Running, Paused, Emergency, Fault} {
		s := New(logx.Noop(), 20)
		s.Mode = m

		s.EmergencyStop()

		if s.Mode != Emergency {
			t.Fatalf("expected EMERGENCY from %s, got %s", m, s.Mode)
		}
	}
}

func TestResetOnlyLegalFromEmergencyOrFault(t *testing.T) {
	s := New(logx.Noop(), 20)
	s.Mode = Running

	if err := s.Reset(); err == nil {
		t.Fatal("expected reset to be illegal from RUNNING")
	}

	s.Mode = Emergency
	if err := s.Reset(); err != nil {
		t.Fatalf("unexpected error resetting from EMERGENCY: %v", err)
	}
	if s.Mode != Stopped {
		t.Fatalf("expected STOPPED after reset, got %s", s.Mode)
	}
}

func TestDetectFaultsFlagsNaN(t *testing.T) {
	s := New(logx.Noop(), 20)
	s.Mode = Running

	s.DetectFaults(map[string]float64{"x": nan()}, nil)

	if s.Mode != Emergency {
		t.Fatalf("NaN reading should force EMERGENCY, got %s", s.Mode)
	}
	if len(s.Faults) == 0 {
		t.Fatal("expected at least one active fault")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
