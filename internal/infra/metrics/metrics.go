package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the reminder pipeline.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// EvaluationsTotal counts per-habit evaluation outcomes.
	EvaluationsTotal *prometheus.CounterVec

	// RunDuration is the wall time of one evaluation pass.
	RunDuration prometheus.Histogram

	// RemindersEnqueued is the number of reminders handed to the dispatcher.
	RemindersEnqueued prometheus.Counter

	// RemindersDropped is the number of reminders rejected by a full or stopped queue.
	RemindersDropped prometheus.Counter

	// RemindersDuplicate is the number of reminders suppressed by the idempotency guard.
	RemindersDuplicate prometheus.Counter

	// DeliveriesTotal counts delivery results by status.
	DeliveriesTotal *prometheus.CounterVec

	// SendDuration is the time spent on one delivery including retries.
	SendDuration prometheus.Histogram

	// SendRetries is the total number of retry attempts.
	SendRetries prometheus.Counter
}

// New creates collectors under namespace and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "habit_evaluations_total",
				Help:      "Habit evaluations by outcome",
			},
			[]string{"outcome"},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_run_duration_seconds",
				Help:      "Duration of one reminder evaluation pass",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5},
			},
		),

		RemindersEnqueued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_enqueued_total",
				Help:      "Reminders handed to the delivery queue",
			},
		),

		RemindersDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_dropped_total",
				Help:      "Reminders dropped because the delivery queue was full or stopped",
			},
		),

		RemindersDuplicate: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_duplicate_total",
				Help:      "Reminders suppressed as duplicates of an already claimed slot",
			},
		),

		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Telegram deliveries by status",
			},
			[]string{"status"},
		),

		SendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "send_duration_seconds",
				Help:      "Time to deliver one message",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10},
			},
		),

		SendRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_retries_total",
				Help:      "Total number of delivery retry attempts",
			},
		),
	}
}

func (m *Metrics) IncEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRunDuration(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) IncEnqueued() {
	if m == nil {
		return
	}
	m.RemindersEnqueued.Inc()
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.RemindersDropped.Inc()
}

func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.RemindersDuplicate.Inc()
}

// IncDelivery records a delivery result; status is "sent" or "failed".
func (m *Metrics) IncDelivery(status string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSendDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SendDuration.Observe(seconds)
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.SendRetries.Inc()
}
