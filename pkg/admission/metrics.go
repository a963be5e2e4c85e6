package admission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the admission pipeline. A nil
// *Metrics is valid and records nothing, which keeps tests off the global
// registry.
type Metrics struct {
	// Task outcomes
	taskOutcomes *prometheus.CounterVec

	// Queue wait time for drained tasks
	queueWait prometheus.Histogram

	// Drain lifecycle
	drainStarts    prometheus.Counter
	drainCompletes prometheus.Counter
	drainAbandons  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with Prometheus collectors.
// Call it once per process; collectors register with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		taskOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskgate_task_outcomes_total",
				Help: "Total number of task admissions by outcome",
			},
			[]string{"outcome", "path"},
		),

		queueWait: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "taskgate_queue_wait_seconds",
				Help:    "Time deferred tasks spent queued before execution",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17min
			},
		),

		drainStarts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskgate_drain_runs_started_total",
				Help: "Total number of drain runs that acquired a lease",
			},
		),

		drainCompletes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskgate_drain_runs_completed_total",
				Help: "Total number of drain runs that emptied their queue",
			},
		),

		drainAbandons: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskgate_drain_runs_abandoned_total",
				Help: "Total number of drain runs that gave up before emptying their queue",
			},
		),
	}
}

// RecordTaskOutcome records a task admission outcome. path is "submit" for
// synchronous admissions and "drain" for backlog executions.
func (m *Metrics) RecordTaskOutcome(outcome string, path string) {
	if m == nil {
		return
	}
	m.taskOutcomes.WithLabelValues(outcome, path).Inc()
}

// RecordQueueWait records how long a drained task waited in the backlog.
func (m *Metrics) RecordQueueWait(wait time.Duration) {
	if m == nil {
		return
	}
	m.queueWait.Observe(wait.Seconds())
}

// RecordDrainStart records a drain run acquiring its lease.
func (m *Metrics) RecordDrainStart() {
	if m == nil {
		return
	}
	m.drainStarts.Inc()
}

// RecordDrainComplete records a drain run emptying its queue.
func (m *Metrics) RecordDrainComplete() {
	if m == nil {
		return
	}
	m.drainCompletes.Inc()
}

// RecordDrainAbandoned records a drain run giving up before empty.
func (m *Metrics) RecordDrainAbandoned() {
	if m == nil {
		return
	}
	m.drainAbandons.Inc()
}
