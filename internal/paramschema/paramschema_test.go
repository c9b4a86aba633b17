package paramschema

import "testing"

func TestApplyPartialAcceptPerField(t *testing.T) {
	r := NewRegistry(NewDefaultSchema())

	accepted, errs := r.Apply(map[string]interface{}{
		"floater_volume":      -1.0, // out of range
		"target_tank_pressure": 5.0e5,
	})

	if len(accepted) != 1 || accepted[0] != "target_tank_pressure" {
		t.Fatalf("expected only target_tank_pressure accepted, got %v", accepted)
	}
	if len(errs) != 1 || errs[0].Field != "floater_volume" {
		t.Fatalf("expected floater_volume rejected, got %v", errs)
	}

	if got := r.Float("target_tank_pressure"); got != 5.0e5 {
		t.Fatalf("accepted value not applied: got %v", got)
	}
	if got := r.Float("floater_volume"); got == -1.0 {
		t.Fatal("rejected value must not be applied")
	}
}

func TestApplyRejectsUnknownName(t *testing.T) {
	r := NewRegistry(NewDefaultSchema())

	accepted, errs := r.Apply(map[string]interface{}{"not_a_real_param": 1.0})

	if len(accepted) != 0 {
		t.Fatalf("unknown param should not be accepted, got %v", accepted)
	}
	if len(errs) != 1 {
		t.Fatalf("expected one error for unknown param, got %v", errs)
	}
}

func TestApplySameValueNoObservableChange(t *testing.T) {
	r := NewRegistry(NewDefaultSchema())
	before := r.Snapshot()

	current, _ := r.Get("gravity")
	r.Apply(map[string]interface{}{"gravity": current})

	after := r.Snapshot()
	if before["gravity"] != after["gravity"] {
		t.Fatalf("applying current value changed state: %v -> %v", before["gravity"], after["gravity"])
	}
}

func TestDescribeStableOrderAndCurrentValues(t *testing.T) {
	r := NewRegistry(NewDefaultSchema())
	r.Apply(map[string]interface{}{"gravity": 9.8})

	descs := r.Describe()
	if len(descs) == 0 {
		t.Fatal("expected non-empty descriptor list")
	}

	first := r.Describe()
	second := r.Describe()
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatal("descriptor order not stable across calls")
		}
	}

	for _, d := range descs {
		if d.Name == "gravity" && d.Current != 9.8 {
			t.Fatalf("expected current gravity 9.8, got %v", d.Current)
		}
	}
}

func TestBoolValidation(t *testing.T) {
	r := NewRegistry(NewDefaultSchema())

	_, errs := r.Apply(map[string]interface{}{"hypothesis_h1_enabled": "not-a-bool"})
	if len(errs) != 1 {
		t.Fatalf("expected type error for non-bool value, got %v", errs)
	}
}
