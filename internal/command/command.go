// Package command implements the Command Dispatcher: a bounded, FIFO
// queue drained exclusively by the publisher's single writer between
// steps.
package command

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/arobi/kpp-kernel/internal/kerr"
	"github.com/arobi/kpp-kernel/internal/paramschema"
)

// Kind identifies a command's type.
type Kind int

const (
	Start Kind = iota
	Pause
	Stop
	Reset
	Step
	SetParams
	TriggerPulse
	SetLoad
	EmergencyStop
	InitiateStartup
	SetControlMode
	ToggleHypothesis
)

// Command is one enqueued instruction, tagged by Kind with the relevant
// payload field populated.
type Command struct {
	Kind Kind

	Params       map[string]interface{} // SetParams
	LoadFactor   float64                 // SetLoad
	ControlMode  string                  // SetControlMode
	Hypothesis   string                  // ToggleHypothesis: "H1"|"H2"|"H3"
	HypothesisOn bool                    // ToggleHypothesis

	// Result is delivered here once the dispatcher applies the command.
	// The send never blocks the single writer goroutine: if the channel
	// cannot take the value at that moment the result is dropped, so
	// callers should buffer it by at least 1.
	Result chan CommandResult
}

// CommandResult is what a caller receives after enqueueing a command.
type CommandResult struct {
	Accepted     bool
	Err          error
	AcceptedParams []string
	ParamErrors  []paramschema.FieldError
}

// Dispatcher is the bounded command queue plus its drain-rate limiter.
type Dispatcher struct {
	queue   chan Command
	limiter *rate.Limiter
}

// New creates a dispatcher with the given queue capacity and a drain rate
// limiter permitting maxPerTick commands per tick at tickRateHz, with burst
// maxPerTick so a full allotment is available from the first tick. The
// refill rate is scaled by tickRateHz (not a flat per-second rate) so the
// budget genuinely replenishes once per tick period instead of draining to
// roughly one command per tick once the initial burst is spent.
func New(capacity, maxPerTick int, tickRateHz float64) *Dispatcher {
	return &Dispatcher{
		queue:   make(chan Command, capacity),
		limiter: rate.NewLimiter(rate.Limit(float64(maxPerTick)*tickRateHz), maxPerTick),
	}
}

// Enqueue submits a command from any external caller. Returns false if the
// queue is full (CommandRejected — caller should retry).
func (d *Dispatcher) Enqueue(cmd Command) bool {
	select {
	case d.queue <- cmd:
		return true
	default:
		return false
	}
}

// Drain applies up to maxPerTick queued commands via apply, preserving
// FIFO order; any remainder stays queued for the next tick.
func (d *Dispatcher) Drain(ctx context.Context, maxPerTick int, apply func(Command) CommandResult) int {
	applied := 0
	for applied < maxPerTick {
		if !d.limiter.Allow() {
			break
		}
		select {
		case cmd := <-d.queue:
			res := apply(cmd)
			if cmd.Result != nil {
				select {
				case cmd.Result <- res:
				default:
				}
			}
			applied++
		case <-ctx.Done():
			return applied
		default:
			return applied
		}
	}
	return applied
}

// ValidateControlModeTransition checks whether a requested mode name is a
// legal SET_CONTROL_MODE target from the current mode string, returning a
// CommandRejected error if not.
func ValidateControlModeTransition(current, requested string) error {
	legal := map[string][]string{
		"STOPPED":   {"STARTING"},
		"STARTING":  {"STOPPED"},
		"RUNNING":   {"PAUSED", "STOPPED"},
		"PAUSED":    {"RUNNING", "STOPPED"},
		"EMERGENCY": {"STOPPED"},
		"FAULT":     {"STOPPED"},
	}
	for _, m := range legal[current] {
		if m == requested {
			return nil
		}
	}
	return kerr.Rejected("ILLEGAL_MODE_TRANSITION", current+" -> "+requested+" is not permitted")
}
