package paramschema

import (
	"fmt"
	"sync"
)

// Registry holds current parameter values against a Schema, providing
// validated partial updates: unknown names are rejected, out-of-range
// values are rejected per-field, and the rest of a SET_PARAMS batch still
// applies.
type Registry struct {
	mu     sync.RWMutex
	schema *Schema
	values map[string]interface{}
}

// NewRegistry creates a registry initialized to the schema's defaults.
func NewRegistry(schema *Schema) *Registry {
	r := &Registry{schema: schema, values: make(map[string]interface{})}
	for _, d := range schema.Defs() {
		r.values[d.Name] = d.Default
	}
	return r
}

// Apply validates and applies a batch of updates. It returns the set of
// names that were accepted and a per-field error for every name rejected;
// accepted fields are committed even when others in the same batch fail.
func (r *Registry) Apply(updates map[string]interface{}) (accepted []string, errs []FieldError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, value := range updates {
		def, ok := r.schema.Lookup(name)
		if !ok {
			errs = append(errs, FieldError{Field: name, Message: "unknown parameter"})
			continue
		}
		if err := def.Validate(value); err != nil {
			errs = append(errs, FieldError{Field: name, Message: err.Error()})
			continue
		}
		r.values[name] = value
		accepted = append(accepted, name)
	}
	return accepted, errs
}

// Get returns the current value of name.
func (r *Registry) Get(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Float returns the current value of name as a float64, panicking if the
// name is absent or not numeric — callers only ever ask for names they
// themselves declared in the schema.
func (r *Registry) Float(name string) float64 {
	v, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("paramschema: undeclared parameter %q", name))
	}
	f, ok := asFloat(v)
	if !ok {
		panic(fmt.Sprintf("paramschema: parameter %q is not numeric", name))
	}
	return f
}

// Int returns the current value of name as an int.
func (r *Registry) Int(name string) int {
	v, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("paramschema: undeclared parameter %q", name))
	}
	i, ok := asInt(v)
	if !ok {
		panic(fmt.Sprintf("paramschema: parameter %q is not an int", name))
	}
	return i
}

// Bool returns the current value of name as a bool.
func (r *Registry) Bool(name string) bool {
	v, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("paramschema: undeclared parameter %q", name))
	}
	b, ok := v.(bool)
	if !ok {
		panic(fmt.Sprintf("paramschema: parameter %q is not a bool", name))
	}
	return b
}

// Snapshot returns a copy of all current values, keyed by name.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Descriptor describes one parameter for get_parameter_schema().
type Descriptor struct {
	Name    string      `json:"name"`
	Kind    string      `json:"type"`
	Min     float64     `json:"min,omitempty"`
	Max     float64     `json:"max,omitempty"`
	Default interface{} `json:"default"`
	Current interface{} `json:"current"`
}

// Describe returns the full schema descriptor with current values, in
// stable declaration order, for get_parameter_schema().
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := r.schema.Defs()
	out := make([]Descriptor, 0, len(defs))
	for _, d := range defs {
		desc := Descriptor{
			Name:    d.Name,
			Kind:    d.Kind.String(),
			Default: d.Default,
			Current: r.values[d.Name],
		}
		if d.Kind != KindBool {
			desc.Min = d.Min
			desc.Max = d.Max
		}
		out = append(out, desc)
	}
	return out
}
