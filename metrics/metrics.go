// Package metrics defines the Prometheus instrumentation for the server.
//
// All metrics live on an explicitly constructed registry owned by a Metrics
// value. Nothing registers against the prometheus default registry, so tests
// and multi-server processes can hold independent instances without
// duplicate-registration panics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels recorded on auth_failure_total. Every authentication attempt that
// does not succeed is counted under exactly one of these.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
	ReasonError   = "error"
)

// Metrics holds the server's instruments and the registry they are
// registered on.
type Metrics struct {
	registry *prometheus.Registry

	tokenConfigured   prometheus.Gauge
	authSuccess       prometheus.Counter
	authFailure       *prometheus.CounterVec
	rateLimitExceeded *prometheus.CounterVec
}

// New creates a registry with the server's metrics plus the standard Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokenConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "token_configured",
			Help: "Whether API token is properly configured (1=configured, 0=not configured)",
		}),
		authSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_success_total",
			Help: "Total number of successful authentication attempts",
		}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_failure_total",
			Help: "Total number of failed authentication attempts",
		}, []string{"reason"}),
		rateLimitExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_exceeded_total",
			Help: "Total number of requests that exceeded rate limits",
		}, []string{"endpoint"}),
	}

	m.registry.MustRegister(
		m.tokenConfigured,
		m.authSuccess,
		m.authFailure,
		m.rateLimitExceeded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry for tests and additional
// registrations.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an exposition handler for this registry, suitable for
// mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetTokenConfigured records whether a token hash was available at startup.
func (m *Metrics) SetTokenConfigured(configured bool) {
	if configured {
		m.tokenConfigured.Set(1)
	} else {
		m.tokenConfigured.Set(0)
	}
}

// RecordAuthSuccess counts one successfully authenticated request.
func (m *Metrics) RecordAuthSuccess() {
	m.authSuccess.Inc()
}

// RecordAuthFailure counts one failed authentication attempt under the given
// reason label.
func (m *Metrics) RecordAuthFailure(reason string) {
	m.authFailure.WithLabelValues(reason).Inc()
}

// RecordRateLimitExceeded counts one rejected request for the given endpoint
// path.
func (m *Metrics) RecordRateLimitExceeded(endpoint string) {
	m.rateLimitExceeded.WithLabelValues(endpoint).Inc()
}
