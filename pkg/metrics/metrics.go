package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all engine metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// Ledger metrics
	LedgerAppends     *prometheus.CounterVec
	AppendConflicts   prometheus.Counter
	FoldsApplied      *prometheus.CounterVec
	ReservationDenied prometheus.Counter

	// Sync metrics
	PushAttempts     *prometheus.CounterVec
	PushDuration     *prometheus.HistogramVec
	IntentsQueued    prometheus.Gauge
	IntentsCoalesced prometheus.Counter
	RetriesExhausted *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
	OutboxPending   prometheus.Gauge
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "stocksync",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.LedgerAppends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "ledger_appends_total",
			Help:      "Total number of stock events appended to the ledger",
		},
		[]string{"reason"},
	)

	m.AppendConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "ledger_append_conflicts_total",
			Help:      "Total number of concurrent append conflicts",
		},
	)

	m.FoldsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "aggregate_folds_total",
			Help:      "Total number of events folded into aggregates",
		},
		[]string{"reason"},
	)

	m.ReservationDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "reservations_denied_total",
			Help:      "Reservations rejected for insufficient availability",
		},
	)

	m.PushAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "push_attempts_total",
			Help:      "Marketplace push attempts by marketplace and status",
		},
		[]string{"marketplace", "status"},
	)

	m.PushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "push_duration_seconds",
			Help:      "Marketplace push duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"marketplace"},
	)

	m.IntentsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "sync_intents_queued",
			Help:      "Sync intents currently queued or in flight",
		},
	)

	m.IntentsCoalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "sync_intents_coalesced_total",
			Help:      "Sync intents absorbed into an already-queued intent for the same key",
		},
	)

	m.RetriesExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "sync_retries_exhausted_total",
			Help:      "Sync intents dropped after exhausting their retry budget",
		},
		[]string{"marketplace"},
	)

	m.OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events published by type and result",
		},
		[]string{"eventType", "status"},
	)

	m.OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "outbox_pending",
			Help:      "Unpublished outbox events",
		},
	)

	registry.MustRegister(
		m.LedgerAppends,
		m.AppendConflicts,
		m.FoldsApplied,
		m.ReservationDenied,
		m.PushAttempts,
		m.PushDuration,
		m.IntentsQueued,
		m.IntentsCoalesced,
		m.RetriesExhausted,
		m.OutboxPublished,
		m.OutboxPending,
	)

	return m
}

// RecordPush records one marketplace push outcome.
func (m *Metrics) RecordPush(marketplace string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.PushAttempts.WithLabelValues(marketplace, status).Inc()
	m.PushDuration.WithLabelValues(marketplace).Observe(duration.Seconds())
}

// RecordOutboxPublish records one outbox publish outcome.
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.OutboxPublished.WithLabelValues(eventType, status).Inc()
}

// Handler returns an http.Handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
