package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the bot's pipeline.
type Metrics struct {
	updatesReceived    *prometheus.CounterVec
	plans              *prometheus.CounterVec
	llmDuration        prometheus.Histogram
	remindersScheduled prometheus.Counter
	remindersSent      *prometheus.CounterVec
	remindersPending   prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry. Collectors are
// created once so several constructors in one process don't panic on re-registration.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics registers the collectors on reg and panics on conflict.
// Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		updatesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasknova",
			Subsystem: "webhook",
			Name:      "updates_received_total",
			Help:      "Chat updates received on the webhook, by kind.",
		}, []string{"kind"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasknova",
			Subsystem: "planner",
			Name:      "plans_total",
			Help:      "Reminder plans requested from the language model, by outcome.",
		}, []string{"outcome"}),
		llmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tasknova",
			Subsystem: "planner",
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of language model calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		remindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tasknova",
			Subsystem: "scheduler",
			Name:      "reminders_scheduled_total",
			Help:      "Reminders registered with the in-process scheduler.",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasknova",
			Subsystem: "scheduler",
			Name:      "reminders_sent_total",
			Help:      "Fired reminders, by delivery status.",
		}, []string{"status"}),
		remindersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tasknova",
			Subsystem: "scheduler",
			Name:      "reminders_pending",
			Help:      "Reminders waiting to fire.",
		}),
	}
	reg.MustRegister(m.updatesReceived, m.plans, m.llmDuration, m.remindersScheduled, m.remindersSent, m.remindersPending)
	return m
}

// The methods below are nil-safe so components can run without metrics.

func (m *Metrics) UpdateReceived(kind string) {
	if m == nil {
		return
	}
	m.updatesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) PlanOutcome(outcome string) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLM(d time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.Observe(d.Seconds())
}

func (m *Metrics) ReminderScheduled() {
	if m == nil {
		return
	}
	m.remindersScheduled.Inc()
	m.remindersPending.Inc()
}

func (m *Metrics) ReminderCancelled() {
	if m == nil {
		return
	}
	m.remindersPending.Dec()
}

func (m *Metrics) ReminderFired(status string) {
	if m == nil {
		return
	}
	m.remindersSent.WithLabelValues(status).Inc()
	m.remindersPending.Dec()
}
