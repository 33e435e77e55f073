package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instruments for the settlement engine.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	webhookEvents  *prometheus.CounterVec
	settlements    *prometheus.CounterVec
	scoreUpdates   *prometheus.CounterVec
	loanOperations *prometheus.CounterVec
}

// NewMetrics registers and returns the application metrics.
func NewMetrics() *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumafi_http_requests_total",
		Help: "Counts HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumafi_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumafi_webhook_events_total",
		Help: "Inbound webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})

	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumafi_settlements_total",
		Help: "Ledger settlements applied by kind.",
	}, []string{"kind"})

	scoreUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumafi_score_updates_total",
		Help: "Credit score changes applied by action.",
	}, []string{"action"})

	loanOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumafi_loan_operations_total",
		Help: "Loan lifecycle operations by op and outcome.",
	}, []string{"op", "outcome"})

	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		webhookEvents,
		settlements,
		scoreUpdates,
		loanOperations,
	)

	return &Metrics{
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
		webhookEvents:  webhookEvents,
		settlements:    settlements,
		scoreUpdates:   scoreUpdates,
		loanOperations: loanOperations,
	}
}

// ObserveHTTPRequest records a request and its latency.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, sanitizeLabel(route), status).Inc()
	m.httpDuration.WithLabelValues(method, sanitizeLabel(route)).Observe(duration.Seconds())
}

// RecordWebhookEvent counts one ingested envelope.
func (m *Metrics) RecordWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(sanitizeLabel(eventType), outcome).Inc()
}

// RecordSettlement counts one applied ledger mutation.
func (m *Metrics) RecordSettlement(kind string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(sanitizeLabel(kind)).Inc()
}

// RecordScoreUpdate counts one applied score delta.
func (m *Metrics) RecordScoreUpdate(action string) {
	if m == nil {
		return
	}
	m.scoreUpdates.WithLabelValues(sanitizeLabel(action)).Inc()
}

// RecordLoanOperation counts one loan request or repayment.
func (m *Metrics) RecordLoanOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.loanOperations.WithLabelValues(op, outcome).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
