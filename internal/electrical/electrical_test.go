package electrical

import "testing"

func testConfig() Config {
	return Config{
		Generator: GeneratorConfig{SyncSpeed: 157, SlipMax: 0.05, RatedCurrent: 200, RatedVoltage: 400},
		PowerElectronics: PowerElectronicsConfig{
			RectifierEfficiency: 0.98, InverterEfficiency: 0.97,
			TransformerEfficiency: 0.99, FilterEfficiency: 0.995, MaxCurrent: 300,
		},
		Grid: GridConfig{FrequencyHz: 50, VoltageTolerance: 0.12, FrequencyToleranceHz: 0.5, SyncTimeConstant: 5},
	}
}

func TestOutputPowerZeroUntilSynced(t *testing.T) {
	p := New(testConfig())
	r := p.Step(150, 0.8, 50, 400, 0.1)

	if r.GridSync == Synced {
		t.Fatal("should not be synced on first step")
	}
	if r.OutputPowerToGrid != 0 {
		t.Fatalf("output power must be 0 before sync, got %v", r.OutputPowerToGrid)
	}
}

func TestReachesSyncAfterEnoughTime(t *testing.T) {
	p := New(testConfig())
	for i := 0; i < 1000; i++ {
		p.Step(150, 0.8, 50, 400, 0.1)
	}

	if p.GridSync != Synced {
		t.Fatalf("expected SYNCED after sustained in-tolerance steps, got %s", p.GridSync)
	}
}

func TestVoltageFaultForcesZeroOutput(t *testing.T) {
	p := New(testConfig())
	r := p.Step(150, 0.8, 50, 1000, 0.1) // voltage way out of tolerance

	if !r.Faulted {
		t.Fatal("expected a voltage fault")
	}
	if r.OutputPowerToGrid != 0 {
		t.Fatalf("faulted output must be 0, got %v", r.OutputPowerToGrid)
	}
}

func TestForceDisconnectResetsSync(t *testing.T) {
	p := New(testConfig())
	for i := 0; i < 1000; i++ {
		p.Step(150, 0.8, 50, 400, 0.1)
	}
	p.ForceDisconnect()

	if p.GridSync != Unsynced || p.SyncProgress != 0 {
		t.Fatalf("ForceDisconnect should reset sync state, got %s progress=%v", p.GridSync, p.SyncProgress)
	}
}
