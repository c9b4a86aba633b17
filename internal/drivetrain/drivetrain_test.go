package drivetrain

import "testing"

func testConfig() Config {
	return Config{
		Stages: []GearStage{
			{Ratio: 4.0, Efficiency: 0.97},
			{Ratio: 4.0, Efficiency: 0.97},
		},
		ClutchEngageEpsilon: 0.02,
		FlywheelInertia:     50.0,
	}
}

func TestGearboxMultipliesTorqueDividesSpeed(t *testing.T) {
	p := New(testConfig())
	r := p.Step(5.0, 1000.0, 1.0, 0, 0.1)

	if r.GearboxTorque <= 0 {
		t.Fatalf("gearbox torque should be positive, got %v", r.GearboxTorque)
	}
	if r.GearboxAngularVelocity >= r.SprocketAngularVelocity {
		t.Fatalf("gearbox should reduce angular velocity: sprocket=%v gearbox=%v",
			r.SprocketAngularVelocity, r.GearboxAngularVelocity)
	}
}

func TestClutchDisengagesOnReverseTorque(t *testing.T) {
	p := New(testConfig())
	p.FlywheelSpeed = 0 // flywheel at rest so the forward-turning shaft would otherwise engage the clutch

	r := p.Step(5.0, -1000.0, 1.0, 0, 0.1)

	if r.ClutchEngaged && r.ClutchTorque < 0 {
		t.Fatal("clutch should never transmit negative torque while engaged")
	}
}

func TestFlywheelStoredEnergyFormula(t *testing.T) {
	p := New(testConfig())
	r := p.Step(5.0, 1000.0, 1.0, 0, 0.1)

	want := 0.5 * p.Config.FlywheelInertia * r.FlywheelSpeed * r.FlywheelSpeed
	if r.FlywheelStoredEnergy != want {
		t.Fatalf("stored energy = %v, want %v", r.FlywheelStoredEnergy, want)
	}
}

func TestFlywheelSpeedNeverNegative(t *testing.T) {
	p := New(testConfig())
	r := p.Step(0, 0, 1.0, 1e9, 0.1) // huge generator reaction torque, no drive

	if r.FlywheelSpeed < 0 {
		t.Fatalf("flywheel speed should never go negative, got %v", r.FlywheelSpeed)
	}
}
