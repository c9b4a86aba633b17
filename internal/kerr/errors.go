// Package kerr defines the kernel's error taxonomy: configuration errors,
// transient subsystem errors, critical subsystem faults, and rejected
// commands.
package kerr

import "fmt"

// Kind classifies a kernel error for callers that need to branch on it
// without string matching.
type Kind int

const (
	// KindConfiguration marks invalid parameters at init or via SET_PARAMS.
	KindConfiguration Kind = iota
	// KindTransientSubsystem marks a recoverable fault handled locally,
	// surfaced in the snapshot fault set without a mode change.
	KindTransientSubsystem
	// KindCriticalSubsystemFault marks an unrecoverable subsystem state
	// that forces a transition to EMERGENCY.
	KindCriticalSubsystemFault
	// KindCommandRejected marks an illegal state transition, validation
	// failure, or unknown command.
	KindCommandRejected
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindTransientSubsystem:
		return "TransientSubsystemError"
	case KindCriticalSubsystemFault:
		return "CriticalSubsystemFault"
	case KindCommandRejected:
		return "CommandRejected"
	default:
		return "UnknownError"
	}
}

// Error is the kernel's structured error type. It wraps an underlying
// cause while exposing a stable Kind and Code for callers.
type Error struct {
	Kind  Kind
	Code  string
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Code, e.msg, e.cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, msg: msg, cause: cause}
}

// Configuration builds a ConfigurationError.
func Configuration(code, msg string) *Error {
	return newErr(KindConfiguration, code, msg, nil)
}

// Transient builds a TransientSubsystemError.
func Transient(code, msg string) *Error {
	return newErr(KindTransientSubsystem, code, msg, nil)
}

// Critical builds a CriticalSubsystemFault.
func Critical(code, msg string) *Error {
	return newErr(KindCriticalSubsystemFault, code, msg, nil)
}

// Rejected builds a CommandRejected error.
func Rejected(code, msg string) *Error {
	return newErr(KindCommandRejected, code, msg, nil)
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, code, msg string, cause error) *Error {
	return newErr(kind, code, msg, cause)
}

// Is reports whether err is a kerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	ke, ok := err.(*Error)
	return ok && ke.Kind == kind
}
