package kernel

import (
	"testing"

	"github.com/arobi/kpp-kernel/internal/command"
	"github.com/arobi/kpp-kernel/internal/control"
	"github.com/arobi/kpp-kernel/internal/logx"
	"github.com/arobi/kpp-kernel/internal/pneumatic"
)

func newTestKernel() *Kernel {
	return New(logx.Noop())
}

func submitDirect(k *Kernel, cmd command.Command) command.CommandResult {
	cmd.Result = make(chan command.CommandResult, 1)
	if !k.dispatcher.Enqueue(cmd) {
		return command.CommandResult{Err: nil, Accepted: false}
	}
	k.tick()
	return <-cmd.Result
}

func TestTickIdleWhileStopped(t *testing.T) {
	k := newTestKernel()

	s, err := k.tick()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.StepIndex != 0 {
		t.Fatalf("expected step index to stay 0 while STOPPED, got %d", s.StepIndex)
	}
	if s.Control.Mode != "STOPPED" {
		t.Fatalf("expected STOPPED, got %s", s.Control.Mode)
	}
}

func TestStepIndexAdvancesOnceRunning(t *testing.T) {
	k := newTestKernel()
	k.sequencer.Mode = control.Running

	_, _ = k.tick()
	_, _ = k.tick()

	if k.stepIndex != 2 {
		t.Fatalf("expected step index 2 after two ticks while RUNNING, got %d", k.stepIndex)
	}
}

func TestSnapshotHoldsLastKnownStateWhenPaused(t *testing.T) {
	k := newTestKernel()
	k.sequencer.Mode = control.Running
	_, _ = k.tick()
	running := k.stateManager.Latest()

	k.sequencer.Mode = control.Paused
	_, _ = k.tick()
	paused := k.stateManager.Latest()

	if paused.Chain.AngularVelocity != running.Chain.AngularVelocity {
		t.Fatalf("expected chain view to hold steady while PAUSED: running=%v paused=%v",
			running.Chain.AngularVelocity, paused.Chain.AngularVelocity)
	}
}

func TestSetParamsPartialAcceptFlowsThroughDispatch(t *testing.T) {
	k := newTestKernel()

	res := submitDirect(k, command.Command{Kind: command.SetParams, Params: map[string]interface{}{
		"floater_volume":       -1.0, // invalid, out of range
		"target_power_watts":   50000.0,
	}})

	if len(res.AcceptedParams) != 1 || res.AcceptedParams[0] != "target_power_watts" {
		t.Fatalf("expected only target_power_watts accepted, got %v", res.AcceptedParams)
	}
	if len(res.ParamErrors) != 1 {
		t.Fatalf("expected one param error, got %v", res.ParamErrors)
	}
	if k.params.Float("target_power_watts") != 50000.0 {
		t.Fatalf("accepted param not applied")
	}
}

func TestIllegalControlModeTransitionRejected(t *testing.T) {
	k := newTestKernel()

	res := submitDirect(k, command.Command{Kind: command.SetControlMode, ControlMode: "RUNNING"})
	if res.Err == nil {
		t.Fatal("expected STOPPED -> RUNNING to be rejected")
	}
}

func TestEmergencyStopForcesSubsystemShutdown(t *testing.T) {
	k := newTestKernel()
	k.sequencer.Mode = control.Running
	k.pneumaticSys.CompressorState = pneumatic.Running

	res := submitDirect(k, command.Command{Kind: command.EmergencyStop})
	if !res.Accepted {
		t.Fatalf("expected EMERGENCY_STOP accepted, got err %v", res.Err)
	}
	if k.sequencer.Mode != control.Emergency {
		t.Fatalf("expected mode EMERGENCY, got %s", k.sequencer.Mode)
	}
	if k.pneumaticSys.CompressorState != pneumatic.Off {
		t.Fatalf("expected compressor forced off, got %s", k.pneumaticSys.CompressorState)
	}
}

func TestInitiateStartupThenEmergencyStopIsReachable(t *testing.T) {
	k := newTestKernel()

	res := submitDirect(k, command.Command{Kind: command.InitiateStartup})
	if !res.Accepted {
		t.Fatalf("expected INITIATE_STARTUP accepted, got err %v", res.Err)
	}
	if k.sequencer.Mode != control.StartingMode {
		t.Fatalf("expected STARTING, got %s", k.sequencer.Mode)
	}

	res = submitDirect(k, command.Command{Kind: command.EmergencyStop})
	if !res.Accepted {
		t.Fatalf("expected EMERGENCY_STOP accepted from STARTING, got err %v", res.Err)
	}
	if k.sequencer.Mode != control.Emergency {
		t.Fatalf("expected EMERGENCY, got %s", k.sequencer.Mode)
	}
}

func TestSetControlModeStoppedRecoversFromEmergencyViaReset(t *testing.T) {
	k := newTestKernel()
	k.sequencer.Mode = control.Emergency
	k.sequencer.Faults = append(k.sequencer.Faults, control.ActiveFault{Code: "X"})

	res := submitDirect(k, command.Command{Kind: command.SetControlMode, ControlMode: "STOPPED"})
	if !res.Accepted {
		t.Fatalf("expected EMERGENCY -> STOPPED accepted via reset, got err %v", res.Err)
	}
	if k.sequencer.Mode != control.Stopped {
		t.Fatalf("expected STOPPED, got %s", k.sequencer.Mode)
	}
	if len(k.sequencer.Faults) != 0 {
		t.Fatalf("expected faults cleared by reset, got %v", k.sequencer.Faults)
	}
}

func TestGetStatusReflectsSequencerUnderLock(t *testing.T) {
	k := newTestKernel()
	k.sequencer.Mode = control.Running

	status := k.GetStatus()
	if status.Mode != "RUNNING" {
		t.Fatalf("expected RUNNING, got %s", status.Mode)
	}
}
