// Package metrics provides Prometheus metrics for the sandbox subsystem.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds the Prometheus collectors exported by sandboxd.
type Metrics struct {
	CodeExecutionsTotal   *prometheus.CounterVec
	CodeExecutionDuration *prometheus.HistogramVec
	ExecutionsInFlight    prometheus.Gauge
	ExecutionQueueLength  prometheus.Gauge
	OrphanSweepsTotal     prometheus.Counter
	OrphanSweepRemoved    prometheus.Counter
}

// Get returns the process-wide Metrics singleton, registering every
// collector on first call.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.CodeExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandboxd",
			Subsystem: "exec",
			Name:      "total",
			Help:      "Total number of sandbox executions by stop type",
		},
		[]string{"stop_type"},
	)

	m.CodeExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sandboxd",
			Subsystem: "exec",
			Name:      "duration_seconds",
			Help:      "Sandbox execution wall-clock duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"stop_type"},
	)

	m.ExecutionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sandboxd",
			Subsystem: "exec",
			Name:      "in_flight",
			Help:      "Current number of executions holding an admission permit",
		},
	)

	m.ExecutionQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sandboxd",
			Subsystem: "exec",
			Name:      "queue_length",
			Help:      "Current number of executions waiting for an admission permit",
		},
	)

	m.OrphanSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandboxd",
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Total number of orphan sweep passes executed",
		},
	)

	m.OrphanSweepRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sandboxd",
			Subsystem: "sweeper",
			Name:      "containers_removed_total",
			Help:      "Total number of orphaned containers removed by the sweeper",
		},
	)

	return m
}
