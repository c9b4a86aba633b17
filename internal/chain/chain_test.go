package chain

import "testing"

func TestAdvanceIntegratesVelocityUnclamped(t *testing.T) {
	s := NewState(1.0)
	s.Advance(1000.0, 0.1)

	if s.LinearVelocity != 100.0 {
		t.Fatalf("Advance must not clamp velocity: got %v, want 100.0", s.LinearVelocity)
	}
}

func TestAdvanceNegativeAcceleration(t *testing.T) {
	s := NewState(1.0)
	s.Advance(-1000.0, 0.1)

	if s.LinearVelocity != -100.0 {
		t.Fatalf("got %v, want -100.0", s.LinearVelocity)
	}
}

func TestAdvanceAccumulatesLinearly(t *testing.T) {
	s := NewState(1.0)
	s.Advance(2.0, 0.5)
	s.Advance(2.0, 0.5)

	if s.LinearVelocity != 2.0 {
		t.Fatalf("velocity should accumulate across calls: got %v, want 2.0", s.LinearVelocity)
	}
}

func TestAngularVelocityDerivedFromRadius(t *testing.T) {
	s := NewState(2.0)
	s.LinearVelocity = 4.0

	if got := s.AngularVelocity(); got != 2.0 {
		t.Fatalf("angular velocity = %v, want 2.0", got)
	}
}

func TestWrappedAngleStaysInRange(t *testing.T) {
	s := NewState(1.0)
	s.AngularPosition = 20.5

	w := s.WrappedAngle()
	if w < 0 || w >= 6.283185307179586 {
		t.Fatalf("wrapped angle out of range: %v", w)
	}
}
