// Package paramschema implements the kernel's typed parameter schema: an
// enumerated, typed, range-checked registry of tunables, introspectable
// at runtime instead of living as compile-time config structs.
package paramschema

import "fmt"

// Kind is the declared type of a parameter.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Def describes a single parameter: name, type, range, and default.
type Def struct {
	Name    string
	Kind    Kind
	Min     float64 // ignored for KindBool
	Max     float64 // ignored for KindBool
	Default interface{}
}

// FieldError reports a single rejected field from SET_PARAMS.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Schema is the full set of parameter definitions for the kernel.
type Schema struct {
	defs map[string]Def
	order []string
}

// NewDefaultSchema builds the kernel's parameter schema covering physics
// constants, geometry, pneumatic setpoints, generator ratings, and
// hypothesis enables.
func NewDefaultSchema() *Schema {
	s := &Schema{defs: make(map[string]Def)}

	f := func(name string, min, max, def float64) {
		s.add(Def{Name: name, Kind: KindFloat, Min: min, Max: max, Default: def})
	}
	i := func(name string, min, max int, def int) {
		s.add(Def{Name: name, Kind: KindInt, Min: float64(min), Max: float64(max), Default: def})
	}
	b := func(name string, def bool) {
		s.add(Def{Name: name, Kind: KindBool, Default: def})
	}

	// Physics & geometry
	f("gravity", 1.0, 20.0, 9.81)
	f("water_density", 500.0, 1500.0, 1000.0)
	f("dt", 0.01, 0.1, 0.1)
	f("velocity_cap", 1.0, 200.0, 50.0)
	i("floater_count", 2, 64, 8)
	f("floater_volume", 0.01, 10.0, 0.3)
	f("floater_area", 0.01, 5.0, 0.2)
	f("floater_drag_coefficient", 0.0, 3.0, 0.8)
	f("floater_container_mass", 1.0, 2000.0, 18.0)
	f("sprocket_radius", 0.1, 10.0, 1.0)
	f("theta_bottom", 0.001, 0.5, 0.05)
	f("theta_top", 0.001, 0.5, 0.05)
	f("epsilon_velocity", 1e-6, 1.0, 0.01)

	// Pneumatic
	f("tank_depth", 0.5, 500.0, 10.0)
	f("atmospheric_pressure", 5e4, 2e5, 101325.0)
	f("tank_low_setpoint", 5e4, 1e6, 3.0e5)
	f("tank_high_setpoint", 5e4, 2e6, 5.0e5)
	f("tank_critical_low_pressure", 0.0, 5e5, 1.0e5)
	f("tank_emergency_high_pressure", 1e5, 5e6, 9.0e5)
	f("tank_injection_threshold", 5e4, 2e6, 3.2e5)
	f("compressor_volumetric_rate", 1.0, 1e5, 5000.0)
	f("compressor_power_watts", 10.0, 5e5, 3000.0)
	f("compressor_min_cycle_seconds", 0.0, 120.0, 5.0)
	f("pressure_max_rate", 1.0, 1e6, 5e4)

	// Drivetrain
	i("gearbox_stage_count", 1, 6, 2)
	f("gearbox_ratio_per_stage", 1.0, 50.0, 4.0)
	f("gearbox_efficiency_per_stage", 0.5, 1.0, 0.97)
	f("clutch_engage_epsilon", 0.0, 0.2, 0.02)
	f("flywheel_inertia", 0.1, 5000.0, 50.0)

	// Electrical
	f("generator_sync_speed", 10.0, 500.0, 157.0)
	f("generator_slip_max", 0.0, 0.5, 0.05)
	f("generator_rated_current", 1.0, 5000.0, 200.0)
	f("generator_rated_voltage", 100.0, 50000.0, 400.0)
	f("rectifier_efficiency", 0.5, 1.0, 0.98)
	f("inverter_efficiency", 0.5, 1.0, 0.97)
	f("transformer_efficiency", 0.5, 1.0, 0.99)
	f("filter_efficiency", 0.5, 1.0, 0.995)
	f("grid_frequency_hz", 45.0, 65.0, 50.0)
	f("grid_voltage_tolerance", 0.01, 0.5, 0.12)
	f("grid_frequency_tolerance_hz", 0.01, 5.0, 0.5)
	f("grid_sync_time_constant", 0.1, 120.0, 5.0)
	f("load_factor_target", 0.0, 1.0, 0.8)

	// Control & startup
	f("startup_phase_timeout_seconds", 1.0, 120.0, 20.0)
	f("target_tank_pressure", 5e4, 2e6, 4.0e5)
	f("target_flywheel_rpm", 10.0, 3000.0, 600.0)
	f("min_component_temp_margin", 0.0, 200.0, 20.0)
	f("target_power_watts", 0.0, 1e7, 20000.0)

	// Hypotheses
	b("hypothesis_h1_enabled", false)
	f("h1_nanobubble_void_fraction", 0.0, 0.3, 0.05)
	f("h1_density_reduction_fraction", 0.0, 1.0, 0.5)
	b("hypothesis_h2_enabled", false)
	f("h2_thermal_boost_coefficient", 0.0, 1.0, 0.1)
	f("h2_temperature_delta", 0.0, 50.0, 5.0)
	b("hypothesis_h3_enabled", false)
	f("h3_pulse_lead_angle", 0.0, 1.0, 0.1)

	// Ring buffer / publisher
	i("ring_buffer_max_count", 10, 200000, 10000)
	i("ring_buffer_max_bytes", 1024, 1 << 30, 50*1024*1024)
	f("publisher_rate_hz", 1.0, 1000.0, 30.0)
	i("subscriber_buffer_size", 1, 100000, 64)
	i("command_drain_max_per_tick", 1, 100000, 32)
	i("velocity_stats_window_steps", 1, 100000, 30)

	return s
}

func (s *Schema) add(d Def) {
	if _, exists := s.defs[d.Name]; !exists {
		s.order = append(s.order, d.Name)
	}
	s.defs[d.Name] = d
}

// Defs returns the schema definitions in stable declaration order.
func (s *Schema) Defs() []Def {
	out := make([]Def, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.defs[name])
	}
	return out
}

// Lookup returns the definition for name.
func (s *Schema) Lookup(name string) (Def, bool) {
	d, ok := s.defs[name]
	return d, ok
}

// Validate checks a single value against a definition's type and range.
func (d Def) Validate(value interface{}) error {
	switch d.Kind {
	case KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		return nil
	case KindInt:
		iv, ok := asInt(value)
		if !ok {
			return fmt.Errorf("expected int, got %T", value)
		}
		if float64(iv) < d.Min || float64(iv) > d.Max {
			return fmt.Errorf("value %d out of range [%g, %g]", iv, d.Min, d.Max)
		}
		return nil
	case KindFloat:
		fv, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("expected float, got %T", value)
		}
		if fv < d.Min || fv > d.Max {
			return fmt.Errorf("value %g out of range [%g, %g]", fv, d.Min, d.Max)
		}
		return nil
	default:
		return fmt.Errorf("unknown parameter kind")
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
