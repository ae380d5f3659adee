// Package metrics provides Prometheus metrics for the ventures service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service metrics. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	pitchesCreated       prometheus.Counter
	shipmentsCreated     prometheus.Counter
	interestsUpserted    prometheus.Counter
	announcementFailures *prometheus.CounterVec
	idempotencyReplays   prometheus.Counter
	httpRequestDuration  *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on reg instead of a fresh private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "ventures",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.pitchesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "pitches_created_total",
		Help:      "Total number of pitches persisted",
	})
	m.shipmentsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "shipments_created_total",
		Help:      "Total number of shipments persisted",
	})
	m.interestsUpserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "interests_upserted_total",
		Help:      "Total number of interest upserts",
	})
	m.announcementFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "announcement_failures_total",
		Help:      "Announcement post failures by effect policy",
	}, []string{"policy"})
	m.idempotencyReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "idempotency_replays_total",
		Help:      "Write requests rejected because their Idempotency-Key was already used",
	})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	return m
}

func (m *Manager) IncPitchesCreated() {
	if m == nil {
		return
	}
	m.pitchesCreated.Inc()
}

func (m *Manager) IncShipmentsCreated() {
	if m == nil {
		return
	}
	m.shipmentsCreated.Inc()
}

func (m *Manager) IncInterestsUpserted() {
	if m == nil {
		return
	}
	m.interestsUpserted.Inc()
}

func (m *Manager) IncAnnouncementFailure(policy string) {
	if m == nil {
		return
	}
	m.announcementFailures.WithLabelValues(policy).Inc()
}

func (m *Manager) IncIdempotencyReplay() {
	if m == nil {
		return
	}
	m.idempotencyReplays.Inc()
}

func (m *Manager) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
