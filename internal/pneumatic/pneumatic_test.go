package pneumatic

import "testing"

func testConfig() Config {
	return Config{
		LowSetpoint: 3e5, HighSetpoint: 5e5,
		CriticalLowPressure: 1e5, EmergencyHighPressure: 9e5,
		MinCycleSeconds: 5, VolumetricRate: 1000, PowerWatts: 3000, MaxRate: 5e4,
	}
}

func TestCompressorStartsBelowLowSetpoint(t *testing.T) {
	s := New(testConfig(), 2e5)
	s.timeSinceLastStop = 100

	s.Step(0.1, false, 0)
	s.Step(0.1, false, 0)

	if s.CompressorState != Running {
		t.Fatalf("expected RUNNING after two steps, got %s", s.CompressorState)
	}
}

func TestCompressorStopsAtHighSetpoint(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, cfg.HighSetpoint)
	s.CompressorState = Running

	s.Step(0.1, false, 0)

	if s.CompressorState != Stopping {
		t.Fatalf("expected STOPPING at/above high setpoint, got %s", s.CompressorState)
	}
}

func TestPressureNeverNegative(t *testing.T) {
	s := New(testConfig(), 1e5)
	s.Step(0.1, false, 1e6)

	if s.Pressure < 0 {
		t.Fatalf("pressure went negative: %v", s.Pressure)
	}
}

func TestEmergencyForcesStop(t *testing.T) {
	s := New(testConfig(), 1e5)
	s.CompressorState = Running

	s.Step(0.1, true, 0)

	if s.CompressorState != Stopping && s.CompressorState != Off {
		t.Fatalf("expected compressor to stop under EMERGENCY, got %s", s.CompressorState)
	}
}

func TestCycleCountMonotonic(t *testing.T) {
	s := New(testConfig(), 1e5)
	s.timeSinceLastStop = 100

	before := s.CycleCount
	s.Step(0.1, false, 0) // OFF -> STARTING
	s.Step(0.1, false, 0) // STARTING -> RUNNING, cycle++

	if s.CycleCount <= before {
		t.Fatalf("cycle count should have increased: before=%d after=%d", before, s.CycleCount)
	}
}
