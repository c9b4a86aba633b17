// Package kernel binds every subsystem into the Kernel Supervisor: the
// lifecycle owner enforcing single-writer discipline over the simulation
// and exposing the transport-agnostic external API. Its wiring follows an
// Initialize/Start/Shutdown lifecycle: every subsystem is stepped in
// sequence on the publisher's single tick goroutine, stopped by context
// cancellation.
package kernel

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arobi/kpp-kernel/internal/chain"
	"github.com/arobi/kpp-kernel/internal/command"
	"github.com/arobi/kpp-kernel/internal/control"
	"github.com/arobi/kpp-kernel/internal/drivetrain"
	"github.com/arobi/kpp-kernel/internal/electrical"
	"github.com/arobi/kpp-kernel/internal/event"
	"github.com/arobi/kpp-kernel/internal/floater"
	"github.com/arobi/kpp-kernel/internal/kerr"
	"github.com/arobi/kpp-kernel/internal/metrics"
	"github.com/arobi/kpp-kernel/internal/paramschema"
	"github.com/arobi/kpp-kernel/internal/physics"
	"github.com/arobi/kpp-kernel/internal/pneumatic"
	"github.com/arobi/kpp-kernel/internal/publisher"
	"github.com/arobi/kpp-kernel/internal/result"
	"github.com/arobi/kpp-kernel/internal/snapshot"
	"github.com/arobi/kpp-kernel/internal/state"
)

// Status is the kernel's queryable summary for get_status().
type Status struct {
	Mode         string  `json:"mode"`
	StartupPhase string  `json:"startup_phase"`
	ActiveFaults int     `json:"active_faults"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Kernel is the supervisor: it owns every subsystem and is the sole
// mutator during a tick. External callers only enqueue commands or read
// committed snapshots.
type Kernel struct {
	mu sync.Mutex // held for the whole of tick(); GetStatus and FinalMode take it to read sequencer state

	log    *logrus.Logger
	params *paramschema.Registry
	metrics *metrics.Metrics

	chain    *chain.State
	floaters []*floater.Floater

	physicsEngine *physics.Engine
	eventHandler  *event.Handler
	pneumaticSys  *pneumatic.Subsystem
	drivetrainPipe *drivetrain.Pipeline
	electricalPipe *electrical.Pipeline
	sequencer      *control.Sequencer

	stateManager *state.Manager
	dispatcher   *command.Dispatcher
	pub          *publisher.Publisher

	stepIndex uint64
	simTime   float64
	startedAt time.Time

	lastGeneratorTorque float64

	lastPhys physics.StepResult
	lastEv   event.Outcome
	lastDr   drivetrain.Result
	lastEl   electrical.Result

	// pendingFaults holds faults raised by command handling (e.g. a
	// deferred manual trigger_pulse) during Drain, for DetectFaults to
	// fold into the fault set on the same tick's pipeline pass — appending
	// straight to sequencer.Faults would be wiped by DetectFaults' reset.
	pendingFaults []control.ActiveFault

	cancel context.CancelFunc
}

// New constructs a fully wired kernel from defaults. Callers should then
// call Run to start the tick loop in a goroutine.
func New(log *logrus.Logger) *Kernel {
	schema := paramschema.NewDefaultSchema()
	params := paramschema.NewRegistry(schema)

	k := &Kernel{
		log:     log,
		params:  params,
		metrics: metrics.Get(),
	}
	k.rebuildFromParams()
	k.dispatcher = command.New(1024, params.Int("command_drain_max_per_tick"), params.Float("publisher_rate_hz"))
	k.pub = publisher.New(log, params.Float("publisher_rate_hz"), params.Int("subscriber_buffer_size"))
	k.stateManager = state.New(params.Int("ring_buffer_max_count"), params.Int("ring_buffer_max_bytes"))
	k.sequencer = control.New(log, params.Float("startup_phase_timeout_seconds"))
	return k
}

// rebuildFromParams creates the physical entities from current parameter
// values. Called only at construction; later SET_PARAMS changes to
// structural parameters (floater_count, geometry) do not rebuild them.
func (k *Kernel) rebuildFromParams() {
	p := k.params

	geom := floater.Geometry{
		Volume:        p.Float("floater_volume"),
		Area:          p.Float("floater_area"),
		DragCoeff:     p.Float("floater_drag_coefficient"),
		ContainerMass: p.Float("floater_container_mass"),
	}
	count := p.Int("floater_count")
	floaters := make([]*floater.Floater, count)
	for i := 0; i < count; i++ {
		angle := (2 * math.Pi * float64(i)) / float64(count)
		floaters[i] = floater.New(i, angle, geom)
	}
	k.floaters = floaters

	k.chain = chain.NewState(p.Float("sprocket_radius"))
	k.physicsEngine = physics.New(k.chain, k.floaters)
	k.eventHandler = event.New()

	k.pneumaticSys = pneumatic.New(pneumatic.Config{
		LowSetpoint:           p.Float("tank_low_setpoint"),
		HighSetpoint:          p.Float("tank_high_setpoint"),
		CriticalLowPressure:   p.Float("tank_critical_low_pressure"),
		EmergencyHighPressure: p.Float("tank_emergency_high_pressure"),
		MinCycleSeconds:       p.Float("compressor_min_cycle_seconds"),
		VolumetricRate:        p.Float("compressor_volumetric_rate"),
		PowerWatts:            p.Float("compressor_power_watts"),
		MaxRate:               p.Float("pressure_max_rate"),
	}, p.Float("atmospheric_pressure"))

	stages := make([]drivetrain.GearStage, p.Int("gearbox_stage_count"))
	for i := range stages {
		stages[i] = drivetrain.GearStage{
			Ratio:      p.Float("gearbox_ratio_per_stage"),
			Efficiency: p.Float("gearbox_efficiency_per_stage"),
		}
	}
	k.drivetrainPipe = drivetrain.New(drivetrain.Config{
		Stages:              stages,
		ClutchEngageEpsilon: p.Float("clutch_engage_epsilon"),
		FlywheelInertia:     p.Float("flywheel_inertia"),
	})

	k.electricalPipe = electrical.New(electrical.Config{
		Generator: electrical.GeneratorConfig{
			SyncSpeed:    p.Float("generator_sync_speed"),
			SlipMax:      p.Float("generator_slip_max"),
			RatedCurrent: p.Float("generator_rated_current"),
			RatedVoltage: p.Float("generator_rated_voltage"),
		},
		PowerElectronics: electrical.PowerElectronicsConfig{
			RectifierEfficiency:   p.Float("rectifier_efficiency"),
			InverterEfficiency:    p.Float("inverter_efficiency"),
			TransformerEfficiency: p.Float("transformer_efficiency"),
			FilterEfficiency:      p.Float("filter_efficiency"),
			MaxCurrent:            p.Float("generator_rated_current") * 1.5,
		},
		Grid: electrical.GridConfig{
			FrequencyHz:          p.Float("grid_frequency_hz"),
			VoltageTolerance:     p.Float("grid_voltage_tolerance"),
			FrequencyToleranceHz: p.Float("grid_frequency_tolerance_hz"),
			SyncTimeConstant:     p.Float("grid_sync_time_constant"),
		},
	})

	k.stepIndex = 0
	k.simTime = 0
	k.lastGeneratorTorque = 0
}

// Run starts the publisher's fixed-rate tick loop in the background until
// ctx is cancelled.
func (k *Kernel) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	k.startedAt = time.Now()
	go k.pub.Run(runCtx, k.tick, k.pub.Publish)
}

// tick implements the per-step pipeline ordering: drain commands, process
// events, integrate physics, advance drivetrain and electrical, evaluate
// control, commit snapshot.
func (k *Kernel) tick() (*snapshot.Snapshot, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.dispatcher.Drain(context.Background(), k.params.Int("command_drain_max_per_tick"), k.applyCommand)

	mode := k.sequencer.Mode
	// Default to the last committed values so a paused or stopped kernel
	// holds steady state for subscribers instead of snapping to zero.
	physResult := k.lastPhys
	evOutcome := k.lastEv
	drResult := k.lastDr
	elResult := k.lastEl

	if mode == control.Running || mode == control.StartingMode {
		dt := k.params.Float("dt")

		thetaBottom := k.params.Float("theta_bottom")
		if k.params.Bool("hypothesis_h3_enabled") {
			thetaBottom += control.PulseLeadAngle(k.params.Float("h3_pulse_lead_angle"))
		}

		evOutcome = k.eventHandler.Step(k.floaters, event.Inputs{
			Zones: event.Zones{
				ThetaBottom: thetaBottom,
				ThetaTop:    k.params.Float("theta_top"),
			},
			TankPressure:        k.pneumaticSys.Pressure,
			InjectionThreshold:  k.params.Float("tank_injection_threshold"),
			AtmosphericPressure: k.params.Float("atmospheric_pressure"),
			WaterDensity:        k.params.Float("water_density"),
			Gravity:             k.params.Float("gravity"),
			TankDepth:           k.params.Float("tank_depth"),
		})

		var err error
		var stepped physics.StepResult
		stepped, err = k.physicsEngine.Step(physics.Inputs{
			Gravity:                 k.params.Float("gravity"),
			WaterDensity:             k.params.Float("water_density"),
			Dt:                       dt,
			VelocityCap:              k.params.Float("velocity_cap"),
			EpsilonVelocity:          k.params.Float("epsilon_velocity"),
			FlywheelInertia:          k.params.Float("flywheel_inertia"),
			GeneratorReactionTorque:  k.lastGeneratorTorque,
			H1Enabled:                k.params.Bool("hypothesis_h1_enabled"),
			H1VoidFraction:           k.params.Float("h1_nanobubble_void_fraction"),
			H1DensityReduction:       k.params.Float("h1_density_reduction_fraction"),
			H2Enabled:                k.params.Bool("hypothesis_h2_enabled"),
			H2ThermalCoefficient:     k.params.Float("h2_thermal_boost_coefficient"),
			H2TemperatureDelta:       k.params.Float("h2_temperature_delta"),
		})
		if err != nil {
			k.lastEv = evOutcome
			k.sequencer.DetectFaults(nil, []control.ActiveFault{{
				Code:        "INTEGRATION_DIVERGENCE",
				Description: err.Error(),
				Severity:    control.SeverityCritical,
			}})
			return k.commitSnapshot(physResult, evOutcome, drResult, elResult), nil
		}
		physResult = stepped

		emergency := mode == control.Emergency
		_, safety := k.pneumaticSys.Step(dt, emergency, evOutcome.EnergyBooked)

		drResult = k.drivetrainPipe.Step(physResult.ChainLinearVelocity, physResult.NetChainForce,
			k.chain.SprocketRadius, k.lastGeneratorTorque, dt)

		loadFactor := k.sequencer.LoadFactor
		elResult = k.electricalPipe.Step(drResult.GearboxAngularVelocity, loadFactor,
			k.params.Float("grid_frequency_hz"), k.params.Float("generator_rated_voltage"), dt)
		k.lastGeneratorTorque = elResult.GeneratorTorque

		k.lastPhys, k.lastEv, k.lastDr, k.lastEl = physResult, evOutcome, drResult, elResult

		k.sequencer.AdvancePhase(k.simTime, control.GateInputs{
			TankPressure:           k.pneumaticSys.Pressure,
			TargetTankPressure:     k.params.Float("target_tank_pressure"),
			ComponentTempMargin:    k.params.Float("min_component_temp_margin") + 1,
			MinComponentTempMargin: k.params.Float("min_component_temp_margin"),
			FloaterCount:           len(k.floaters),
			MinFloaterCount:        2,
			ChainSpeedMeasurable:   math.Abs(physResult.ChainLinearVelocity) > k.params.Float("epsilon_velocity"),
			FlywheelRPM:            drResult.FlywheelSpeed * 60 / (2 * math.Pi),
			TargetFlywheelRPM:      k.params.Float("target_flywheel_rpm"),
			GridSynced:             elResult.GridSync == electrical.Synced,
		})

		var subsystemFaults []control.ActiveFault
		if safety == pneumatic.EmergencyLevel {
			subsystemFaults = append(subsystemFaults, control.ActiveFault{
				Code: "TANK_PRESSURE_EMERGENCY", Description: "tank pressure outside safe envelope", Severity: control.SeverityCritical,
			})
		}
		if elResult.Faulted {
			subsystemFaults = append(subsystemFaults, control.ActiveFault{
				Code: elResult.FaultReason, Description: "power electronics protection trip", Severity: control.SeverityCritical,
			})
		}
		if evOutcome.InjectionsDeferred > 0 {
			subsystemFaults = append(subsystemFaults, control.ActiveFault{
				Code:        "INJECTION_DEFERRED_LOW_PRESSURE",
				Description: fmt.Sprintf("%d injection(s) deferred: pressure below injection threshold", evOutcome.InjectionsDeferred),
				Severity:    control.SeverityWarning,
			})
		}
		if len(k.pendingFaults) > 0 {
			subsystemFaults = append(subsystemFaults, k.pendingFaults...)
			k.pendingFaults = nil
		}
		k.sequencer.DetectFaults(map[string]float64{
			"chain_velocity": physResult.ChainLinearVelocity,
		}, subsystemFaults)

		if mode == control.Running {
			k.sequencer.TrackLoad(elResult.OutputPowerToGrid, k.params.Float("target_power_watts"), 0.01)
		}

		if k.sequencer.Mode == control.Emergency {
			k.pneumaticSys.ForceStop()
			k.electricalPipe.ForceDisconnect()
		}

		k.stepIndex++
		k.simTime += dt
	}

	return k.commitSnapshot(physResult, evOutcome, drResult, elResult), nil
}

func (k *Kernel) commitSnapshot(phys physics.StepResult, ev event.Outcome, dr drivetrain.Result, el electrical.Result) *snapshot.Snapshot {
	floaterViews := make([]snapshot.FloaterView, len(k.floaters))
	for i, f := range k.floaters {
		floaterViews[i] = snapshot.FloaterView{
			Index: f.Index, Angle: f.Angle, Velocity: f.Velocity,
			Fill: f.Fill.String(), Mass: f.Mass(k.params.Float("water_density")),
		}
	}

	faultViews := make([]snapshot.FaultView, len(k.sequencer.Faults))
	for i, fl := range k.sequencer.Faults {
		faultViews[i] = snapshot.FaultView{Code: fl.Code, Description: fl.Description, Severity: fl.Severity.String()}
	}

	count, bytes := k.stateManager.Stats()
	velMean, velStdDev := k.stateManager.RollingVelocityStats(k.params.Int("velocity_stats_window_steps"))

	s := &snapshot.Snapshot{
		StepIndex: k.stepIndex,
		SimTime:   k.simTime,
		Floaters:  floaterViews,
		Chain: snapshot.ChainView{
			LinearVelocity:  phys.ChainLinearVelocity,
			AngularVelocity: phys.SprocketAngularVelocity,
			NetForce:        phys.NetChainForce,
			NetTorque:       phys.NetChainTorque,
		},
		Pneumatic: snapshot.PneumaticView{
			Pressure:        k.pneumaticSys.Pressure,
			CompressorState: k.pneumaticSys.CompressorState.String(),
			CycleCount:      k.pneumaticSys.CycleCount,
			TotalRuntime:    k.pneumaticSys.TotalRuntime,
		},
		Drivetrain: snapshot.DrivetrainView{
			SprocketAngularVelocity: dr.SprocketAngularVelocity,
			GearboxTorque:           dr.GearboxTorque,
			ClutchEngaged:           dr.ClutchEngaged,
			FlywheelSpeed:           dr.FlywheelSpeed,
			FlywheelStoredEnergy:    dr.FlywheelStoredEnergy,
			StageLosses:             dr.StageLosses,
		},
		Electrical: k.electricalView(el),
		Control: snapshot.ControlView{
			Mode:         k.sequencer.Mode.String(),
			StartupPhase: k.sequencer.Phase.String(),
			LoadFactor:   k.sequencer.LoadFactor,
			Faults:       faultViews,
		},
		Hypotheses: snapshot.Hypotheses{
			H1: k.params.Bool("hypothesis_h1_enabled"),
			H2: k.params.Bool("hypothesis_h2_enabled"),
			H3: k.params.Bool("hypothesis_h3_enabled"),
		},
		Publisher: snapshot.PublisherStats{
			RingBufferEntries: count,
			RingBufferBytes:   bytes,
			VelocityMean:      velMean,
			VelocityStdDev:    velStdDev,
		},
	}

	k.metrics.ElectricalPowerWatts.Set(s.Electrical.OutputPowerWatts)
	k.metrics.TankPressurePascals.Set(k.pneumaticSys.Pressure)
	k.metrics.ActiveFaults.Set(float64(len(k.sequencer.Faults)))
	k.metrics.RingBufferEntries.Set(float64(count))
	k.metrics.RingBufferBytes.Set(float64(bytes))

	k.stateManager.Commit(s)
	return s
}

// electricalView builds the snapshot's electrical block. In EMERGENCY the
// grid connection is authoritatively tracked on the live pipeline (forced
// by ForceDisconnect), so the view is built from live pipeline state with
// power output zeroed, rather than from the tick's (possibly pre-fault or
// cached) Result.
func (k *Kernel) electricalView(el electrical.Result) snapshot.ElectricalView {
	if k.sequencer.Mode == control.Emergency {
		return snapshot.ElectricalView{
			GridSyncState: k.electricalPipe.GridSync.String(),
			Faulted:       k.electricalPipe.Faulted,
			FaultReason:   el.FaultReason,
		}
	}
	return snapshot.ElectricalView{
		GeneratorTorque:  el.GeneratorTorque,
		ElectricalPower:  el.ElectricalPower,
		OutputPowerWatts: el.OutputPowerToGrid,
		PowerFactor:      el.PowerFactor,
		Slip:             el.Slip,
		GridSyncState:    el.GridSync.String(),
		Faulted:          el.Faulted,
		FaultReason:      el.FaultReason,
	}
}

func (k *Kernel) applyCommand(cmd command.Command) command.CommandResult {
	switch cmd.Kind {
	case command.Start:
		if err := k.sequencer.InitiateStartup(k.simTime); err != nil {
			k.metrics.CommandsRejected.WithLabelValues("START").Inc()
			return command.CommandResult{Err: kerr.Rejected("ILLEGAL_TRANSITION", err.Error())}
		}
		k.metrics.CommandsAccepted.WithLabelValues("START").Inc()
		k.metrics.ModeTransitions.WithLabelValues(k.sequencer.Mode.String()).Inc()
		return command.CommandResult{Accepted: true}

	case command.Pause:
		if err := k.sequencer.Pause(); err != nil {
			k.metrics.CommandsRejected.WithLabelValues("PAUSE").Inc()
			return command.CommandResult{Err: kerr.Rejected("ILLEGAL_TRANSITION", err.Error())}
		}
		k.metrics.CommandsAccepted.WithLabelValues("PAUSE").Inc()
		return command.CommandResult{Accepted: true}

	case command.Stop:
		if err := k.sequencer.Stop(); err != nil {
			k.metrics.CommandsRejected.WithLabelValues("STOP").Inc()
			return command.CommandResult{Err: kerr.Rejected("ILLEGAL_TRANSITION", err.Error())}
		}
		k.metrics.CommandsAccepted.WithLabelValues("STOP").Inc()
		return command.CommandResult{Accepted: true}

	case command.Reset:
		if err := k.sequencer.Reset(); err != nil {
			k.metrics.CommandsRejected.WithLabelValues("RESET").Inc()
			return command.CommandResult{Err: kerr.Rejected("ILLEGAL_TRANSITION", err.Error())}
		}
		k.metrics.CommandsAccepted.WithLabelValues("RESET").Inc()
		return command.CommandResult{Accepted: true}

	case command.Step:
		k.metrics.CommandsAccepted.WithLabelValues("STEP").Inc()
		return command.CommandResult{Accepted: true}

	case command.SetParams:
		accepted, errs := k.params.Apply(cmd.Params)
		if len(accepted) > 0 {
			k.metrics.CommandsAccepted.WithLabelValues("SET_PARAMS").Inc()
		}
		if len(errs) > 0 {
			k.metrics.CommandsRejected.WithLabelValues("SET_PARAMS").Inc()
		}
		return command.CommandResult{Accepted: len(accepted) > 0, AcceptedParams: accepted, ParamErrors: errs}

	case command.TriggerPulse:
		fired, deferred, _ := k.eventHandler.TriggerPulse(k.floaters, event.Inputs{
			Zones: event.Zones{ThetaBottom: k.params.Float("theta_bottom"), ThetaTop: k.params.Float("theta_top")},
			TankPressure:        k.pneumaticSys.Pressure,
			InjectionThreshold:  k.params.Float("tank_injection_threshold"),
			AtmosphericPressure: k.params.Float("atmospheric_pressure"),
			WaterDensity:        k.params.Float("water_density"),
			Gravity:             k.params.Float("gravity"),
			TankDepth:           k.params.Float("tank_depth"),
		})
		if deferred {
			k.pendingFaults = append(k.pendingFaults, control.ActiveFault{
				Code: "INJECTION_DEFERRED_LOW_PRESSURE", Description: "trigger_pulse deferred: pressure below injection threshold", Severity: control.SeverityWarning,
			})
		}
		k.metrics.CommandsAccepted.WithLabelValues("TRIGGER_PULSE").Inc()
		return command.CommandResult{Accepted: fired}

	case command.SetLoad:
		k.sequencer.LoadFactor = clamp01(cmd.LoadFactor)
		k.metrics.CommandsAccepted.WithLabelValues("SET_LOAD").Inc()
		return command.CommandResult{Accepted: true}

	case command.EmergencyStop:
		k.sequencer.EmergencyStop()
		k.pneumaticSys.ForceStop()
		k.electricalPipe.ForceDisconnect()
		k.metrics.CommandsAccepted.WithLabelValues("EMERGENCY_STOP").Inc()
		k.metrics.ModeTransitions.WithLabelValues(k.sequencer.Mode.String()).Inc()
		return command.CommandResult{Accepted: true}

	case command.InitiateStartup:
		if err := k.sequencer.InitiateStartup(k.simTime); err != nil {
			k.metrics.CommandsRejected.WithLabelValues("INITIATE_STARTUP").Inc()
			return command.CommandResult{Err: kerr.Rejected("ILLEGAL_TRANSITION", err.Error())}
		}
		k.metrics.CommandsAccepted.WithLabelValues("INITIATE_STARTUP").Inc()
		return command.CommandResult{Accepted: true}

	case command.SetControlMode:
		if err := command.ValidateControlModeTransition(k.sequencer.Mode.String(), cmd.ControlMode); err != nil {
			k.metrics.CommandsRejected.WithLabelValues("SET_CONTROL_MODE").Inc()
			return command.CommandResult{Err: err}
		}
		var transitionErr error
		switch cmd.ControlMode {
		case "STARTING":
			transitionErr = k.sequencer.InitiateStartup(k.simTime)
		case "RUNNING":
			transitionErr = k.sequencer.Resume()
		case "PAUSED":
			transitionErr = k.sequencer.Pause()
		case "STOPPED":
			if k.sequencer.Mode == control.Emergency || k.sequencer.Mode == control.Fault {
				transitionErr = k.sequencer.Reset()
			} else {
				transitionErr = k.sequencer.Stop()
			}
		default:
			transitionErr = kerr.Rejected("UNKNOWN_CONTROL_MODE", "unrecognized target mode "+cmd.ControlMode)
		}
		if transitionErr != nil {
			k.metrics.CommandsRejected.WithLabelValues("SET_CONTROL_MODE").Inc()
			return command.CommandResult{Err: transitionErr}
		}
		k.metrics.CommandsAccepted.WithLabelValues("SET_CONTROL_MODE").Inc()
		k.metrics.ModeTransitions.WithLabelValues(k.sequencer.Mode.String()).Inc()
		return command.CommandResult{Accepted: true}

	case command.ToggleHypothesis:
		name := "hypothesis_" + toLowerHypothesis(cmd.Hypothesis) + "_enabled"
		_, errs := k.params.Apply(map[string]interface{}{name: cmd.HypothesisOn})
		if len(errs) > 0 {
			k.metrics.CommandsRejected.WithLabelValues("TOGGLE_HYPOTHESIS").Inc()
			return command.CommandResult{Err: kerr.Rejected("UNKNOWN_HYPOTHESIS", "unrecognized hypothesis name")}
		}
		k.metrics.CommandsAccepted.WithLabelValues("TOGGLE_HYPOTHESIS").Inc()
		return command.CommandResult{Accepted: true}

	default:
		return command.CommandResult{Err: kerr.Rejected("UNKNOWN_COMMAND", "unrecognized command kind")}
	}
}

func toLowerHypothesis(h string) string {
	switch h {
	case "H1", "h1":
		return "h1"
	case "H2", "h2":
		return "h2"
	case "H3", "h3":
		return "h3"
	default:
		return h
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// submit enqueues cmd and blocks for its result on a fresh single-use
// channel, returning a structured result.Result for the external API.
func (k *Kernel) submit(cmd command.Command) result.Result {
	cmd.Result = make(chan command.CommandResult, 1)
	if !k.dispatcher.Enqueue(cmd) {
		return result.Fail(kerr.Rejected("QUEUE_FULL", "command queue is full"))
	}
	select {
	case res := <-cmd.Result:
		if res.Err != nil {
			return result.Fail(res.Err)
		}
		return result.Success(map[string]interface{}{
			"accepted_params": res.AcceptedParams,
			"param_errors":    res.ParamErrors,
		})
	case <-time.After(5 * time.Second):
		return result.Fail(kerr.Rejected("COMMAND_TIMEOUT", "command was not drained in time"))
	}
}

// Start issues a START command.
func (k *Kernel) Start() result.Result { return k.submit(command.Command{Kind: command.Start}) }

// Pause issues a PAUSE command.
func (k *Kernel) Pause() result.Result { return k.submit(command.Command{Kind: command.Pause}) }

// Stop issues a STOP command.
func (k *Kernel) Stop() result.Result { return k.submit(command.Command{Kind: command.Stop}) }

// Reset issues a RESET command.
func (k *Kernel) Reset() result.Result { return k.submit(command.Command{Kind: command.Reset}) }

// Step issues a STEP command. The command is accepted and counted; it does
// not advance the simulation by itself.
func (k *Kernel) Step() result.Result { return k.submit(command.Command{Kind: command.Step}) }

// SetParams issues a SET_PARAMS command with a validated partial-accept.
func (k *Kernel) SetParams(updates map[string]interface{}) result.Result {
	return k.submit(command.Command{Kind: command.SetParams, Params: updates})
}

// TriggerPulse issues a TRIGGER_PULSE command.
func (k *Kernel) TriggerPulse() result.Result { return k.submit(command.Command{Kind: command.TriggerPulse}) }

// SetLoad issues a SET_LOAD command with factor clamped to [0,1].
func (k *Kernel) SetLoad(factor float64) result.Result {
	return k.submit(command.Command{Kind: command.SetLoad, LoadFactor: factor})
}

// SetControlMode issues a SET_CONTROL_MODE command.
func (k *Kernel) SetControlMode(mode string) result.Result {
	return k.submit(command.Command{Kind: command.SetControlMode, ControlMode: mode})
}

// EmergencyStop issues an EMERGENCY_STOP command.
func (k *Kernel) EmergencyStop() result.Result { return k.submit(command.Command{Kind: command.EmergencyStop}) }

// InitiateStartup issues an INITIATE_STARTUP command.
func (k *Kernel) InitiateStartup() result.Result {
	return k.submit(command.Command{Kind: command.InitiateStartup})
}

// ToggleHypothesis issues a TOGGLE_HYPOTHESIS command.
func (k *Kernel) ToggleHypothesis(name string, on bool) result.Result {
	return k.submit(command.Command{Kind: command.ToggleHypothesis, Hypothesis: name, HypothesisOn: on})
}

// GetLatestSnapshot returns the most recently committed snapshot.
func (k *Kernel) GetLatestSnapshot() result.Result {
	s := k.stateManager.Latest()
	if s == nil {
		return result.Fail(kerr.Rejected("NO_SNAPSHOT_YET", "kernel has not committed a snapshot"))
	}
	return result.Success(s)
}

// GetSnapshotRange returns up to limit of the most recent snapshots at or
// after fromIndex.
func (k *Kernel) GetSnapshotRange(fromIndex uint64, limit int) result.Result {
	return result.Success(k.stateManager.Range(fromIndex, limit))
}

// GetStatus returns the kernel's current mode/phase/fault/uptime summary.
func (k *Kernel) GetStatus() Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Status{
		Mode:          k.sequencer.Mode.String(),
		StartupPhase:  k.sequencer.Phase.String(),
		ActiveFaults:  len(k.sequencer.Faults),
		UptimeSeconds: time.Since(k.startedAt).Seconds(),
	}
}

// GetParameterSchema returns the full parameter descriptor table.
func (k *Kernel) GetParameterSchema() []paramschema.Descriptor {
	return k.params.Describe()
}

// Subscribe registers a new snapshot stream.
func (k *Kernel) Subscribe(bufferSize int) *publisher.Subscriber {
	return k.pub.Subscribe(bufferSize)
}

// Unsubscribe removes a subscriber by handle.
func (k *Kernel) Unsubscribe(id string) { k.pub.Unsubscribe(id) }

// Shutdown cancels the tick loop. Exit code selection is the caller's
// responsibility based on the kernel's terminal mode.
func (k *Kernel) Shutdown() {
	if k.cancel != nil {
		k.cancel()
	}
}

// FinalMode reports the kernel's mode at the moment of shutdown, used by
// the binary wrapper to choose an exit code.
func (k *Kernel) FinalMode() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sequencer.Mode.String()
}
