// Package metrics exposes Prometheus collectors for the discussion engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roundtable"

// Metrics groups every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	messagesAppended  *prometheus.CounterVec
	turnsSkipped      *prometheus.CounterVec
	runsFinished      *prometheus.CounterVec
	runDuration       prometheus.Histogram
	contextFallbacks  prometheus.Counter
	eventsPublished   prometheus.Counter
	subscribersDrop   prometheus.Counter
	subscriptions     prometheus.Gauge
	submissionsDenied prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messagesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Messages appended to discussion transcripts.",
		}, []string{"sender_kind"}),
		turnsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_skipped_total",
			Help:      "Participant turns skipped after a collaborator failure.",
		}, []string{"role"}),
		runsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Processing runs that reached a terminal status.",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of processing runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		contextFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_fallbacks_total",
			Help:      "Retrieval calls that failed and fell back to empty context.",
		}),
		eventsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_events_published_total",
			Help:      "Message events delivered to subscriptions.",
		}),
		subscribersDrop: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_subscribers_dropped_total",
			Help:      "Subscriptions removed because their buffer was full.",
		}),
		subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_subscriptions",
			Help:      "Live subscriptions.",
		}),
		submissionsDenied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Human submissions blocked by the admission policy.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MessageAppended(senderKind string) {
	if m == nil {
		return
	}
	m.messagesAppended.WithLabelValues(senderKind).Inc()
}

func (m *Metrics) TurnSkipped(role string) {
	if m == nil {
		return
	}
	m.turnsSkipped.WithLabelValues(role).Inc()
}

func (m *Metrics) RunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) ContextFallback() {
	if m == nil {
		return
	}
	m.contextFallbacks.Inc()
}

func (m *Metrics) EventPublished() {
	if m == nil {
		return
	}
	m.eventsPublished.Inc()
}

func (m *Metrics) SubscriberDropped() {
	if m == nil {
		return
	}
	m.subscribersDrop.Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *Metrics) SubmissionRejected() {
	if m == nil {
		return
	}
	m.submissionsDenied.Inc()
}
