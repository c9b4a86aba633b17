// Package result provides the structured call result every external-facing
// kernel operation returns: ok/error, value or error kind, message, and a
// trace ID, independent of any particular transport.
package result

import (
	"github.com/google/uuid"

	"github.com/arobi/kpp-kernel/internal/kerr"
)

// Result is the envelope every control/query operation returns.
type Result struct {
	OK      bool        `json:"ok"`
	Value   interface{} `json:"value,omitempty"`
	Kind    string      `json:"error_kind,omitempty"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id"`
}

// Success wraps a successful value with a fresh trace ID.
func Success(value interface{}) Result {
	return Result{OK: true, Value: value, TraceID: uuid.NewString()}
}

// Fail wraps an error with a fresh trace ID, extracting the kind when err
// is a *kerr.Error (its code appears only inside the message).
func Fail(err error) Result {
	r := Result{OK: false, Message: err.Error(), TraceID: uuid.NewString()}
	if ke, ok := err.(*kerr.Error); ok {
		r.Kind = ke.Kind.String()
	} else {
		r.Kind = "Error"
	}
	return r
}
