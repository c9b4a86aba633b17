// Package metrics provides Prometheus metrics for the KPP simulation kernel.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all kernel Prometheus metrics.
type Metrics struct {
	// Tick / publisher metrics
	TicksTotal       prometheus.Counter
	TickDuration     prometheus.Histogram
	StepsExecuted    prometheus.Counter
	SubscriberDrops  *prometheus.CounterVec
	ActiveSubscribers prometheus.Gauge

	// State manager metrics
	RingBufferEntries prometheus.Gauge
	RingBufferBytes   prometheus.Gauge

	// Command dispatcher metrics
	CommandsAccepted *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec

	// Control / fault metrics
	ModeTransitions *prometheus.CounterVec
	ActiveFaults    prometheus.Gauge

	// Electrical / pneumatic metrics
	ElectricalPowerWatts prometheus.Gauge
	TankPressurePascals  prometheus.Gauge
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Get returns the process-wide metrics instance, creating it on first use.
func Get() *Metrics {
	globalOnce.Do(func() {
		global = newMetrics()
	})
	return global
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kpp",
		Subsystem: "publisher",
		Name:      "ticks_total",
		Help:      "Total number of publisher tick iterations executed.",
	})

	m.TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kpp",
		Subsystem: "publisher",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of a single tick iteration.",
		Buckets:   prometheus.DefBuckets,
	})

	m.StepsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kpp",
		Subsystem: "publisher",
		Name:      "steps_executed_total",
		Help:      "Total number of simulation steps executed.",
	})

	m.SubscriberDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpp",
		Subsystem: "publisher",
		Name:      "subscriber_drops_total",
		Help:      "Dropped frames per subscriber due to full buffers.",
	}, []string{"subscriber_id"})

	m.ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpp",
		Subsystem: "publisher",
		Name:      "active_subscribers",
		Help:      "Number of currently registered snapshot subscribers.",
	})

	m.RingBufferEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpp",
		Subsystem: "state",
		Name:      "ring_buffer_entries",
		Help:      "Number of snapshots currently held in the ring buffer.",
	})

	m.RingBufferBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpp",
		Subsystem: "state",
		Name:      "ring_buffer_bytes",
		Help:      "Estimated byte size of the ring buffer contents.",
	})

	m.CommandsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpp",
		Subsystem: "command",
		Name:      "accepted_total",
		Help:      "Commands accepted by the dispatcher, by command type.",
	}, []string{"command"})

	m.CommandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpp",
		Subsystem: "command",
		Name:      "rejected_total",
		Help:      "Commands rejected by the dispatcher, by command type.",
	}, []string{"command"})

	m.ModeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpp",
		Subsystem: "control",
		Name:      "mode_transitions_total",
		Help:      "Operating mode transitions, by target mode.",
	}, []string{"mode"})

	m.ActiveFaults = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpp",
		Subsystem: "control",
		Name:      "active_faults",
		Help:      "Number of currently active faults.",
	})

	m.ElectricalPowerWatts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpp",
		Subsystem: "electrical",
		Name:      "output_power_watts",
		Help:      "Current electrical output power delivered to the grid.",
	})

	m.TankPressurePascals = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpp",
		Subsystem: "pneumatic",
		Name:      "tank_pressure_pascals",
		Help:      "Current pneumatic tank pressure.",
	})

	return m
}
