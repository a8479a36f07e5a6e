package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for completed tasks
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the Prometheus collectors of a session manager. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	TasksCreated   *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksActive    *prometheus.GaugeVec
	TaskDuration   *prometheus.HistogramVec
	BytesReceived  *prometheus.CounterVec
	BytesSent      prometheus.Counter
	TaskErrors     *prometheus.CounterVec

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for callers without a scraper
type Snapshot struct {
	TasksCreated   int64
	TasksSucceeded int64
	TasksFailed    int64
	TasksCancelled int64
	BytesReceived  int64
	BytesSent      int64
}

// NewMetrics registers the task collectors on reg. Use a fresh
// prometheus.NewRegistry per manager to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TasksCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_tasks_created_total",
				Help: "Total number of session tasks created",
			},
			[]string{"kind"},
		),
		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_tasks_completed_total",
				Help: "Total number of session tasks that delivered a completion",
			},
			[]string{"kind", "outcome"},
		),
		TasksActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netkit_tasks_active",
				Help: "Number of tasks currently tracked by the delegate registry",
			},
			[]string{"kind"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netkit_task_duration_seconds",
				Help:    "Time from task creation to completion",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		BytesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_bytes_received_total",
				Help: "Response body bytes received",
			},
			[]string{"kind"},
		),
		BytesSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "netkit_bytes_sent_total",
				Help: "Upload body bytes sent",
			},
		),
		TaskErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netkit_task_errors_total",
				Help: "Task failures by error kind",
			},
			[]string{"kind", "error_kind"},
		),
	}
}

// RecordTaskCreated records a registered task
func (m *Metrics) RecordTaskCreated(kind string) {
	if m == nil {
		return
	}
	m.TasksCreated.WithLabelValues(kind).Inc()
	m.TasksActive.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.TasksCreated++
	m.mu.Unlock()
}

// RecordTaskCompleted records a delivered completion. errorKind is empty
// on success.
func (m *Metrics) RecordTaskCompleted(kind, outcome, errorKind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TasksCompleted.WithLabelValues(kind, outcome).Inc()
	m.TasksActive.WithLabelValues(kind).Dec()
	m.TaskDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if errorKind != "" {
		m.TaskErrors.WithLabelValues(kind, errorKind).Inc()
	}

	m.mu.Lock()
	switch outcome {
	case OutcomeSuccess:
		m.snapshot.TasksSucceeded++
	case OutcomeCancelled:
		m.snapshot.TasksCancelled++
	default:
		m.snapshot.TasksFailed++
	}
	m.mu.Unlock()
}

// RecordBytesReceived records response bytes
func (m *Metrics) RecordBytesReceived(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesReceived.WithLabelValues(kind).Add(float64(n))

	m.mu.Lock()
	m.snapshot.BytesReceived += int64(n)
	m.mu.Unlock()
}

// RecordBytesSent records upload bytes
func (m *Metrics) RecordBytesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesSent.Add(float64(n))

	m.mu.Lock()
	m.snapshot.BytesSent += int64(n)
	m.mu.Unlock()
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
