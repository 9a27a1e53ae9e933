// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec
	IDConflicts   *prometheus.CounterVec
	SecurityEvent *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers every collector on its own registry, so tests can build as
// many instances as they need.
func New() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grc_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grc_rate_limit_hits_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
		IDConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grc_identifier_conflicts_total",
				Help: "Business identifier collisions reported by the store",
			},
			[]string{"kind"},
		),
		SecurityEvent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grc_security_events_total",
				Help: "Security events written to the audit log",
			},
			[]string{"event"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(m.Requests, m.Latency, m.RateLimitHits, m.IDConflicts, m.SecurityEvent)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.Latency.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) RateLimited(limiter string) {
	m.RateLimitHits.WithLabelValues(limiter).Inc()
}

func (m *Metrics) Conflict(kind string) {
	m.IDConflicts.WithLabelValues(kind).Inc()
}

func (m *Metrics) Security(event string) {
	m.SecurityEvent.WithLabelValues(event).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
