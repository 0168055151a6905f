package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records storefront client activity: API round trips, guest
// migrations and terminal session clears.
type ClientMetrics struct {
	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	migrationLines  *prometheus.CounterVec
	invalidations   *prometheus.CounterVec
}

// NewClientMetrics registers the client metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_api_request_duration_seconds",
		Help:    "Duration of storefront API round trips in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_requests_total",
		Help: "Storefront API round trips by endpoint and status.",
	}, []string{"endpoint", "status"})
	migrationLines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_migration_lines_total",
		Help: "Guest lines migrated into the account by kind and outcome.",
	}, []string{"kind", "outcome"})
	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_invalidations_total",
		Help: "Terminal session clears by reason.",
	}, []string{"reason"})
	reg.MustRegister(requestDuration, requests, migrationLines, invalidations)
	return &ClientMetrics{
		requestDuration: requestDuration,
		requests:        requests,
		migrationLines:  migrationLines,
		invalidations:   invalidations,
	}
}

// ObserveRequest records one API round trip. status 0 means no response was received.
func (c *ClientMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	c.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	c.requests.WithLabelValues(endpoint, statusLabel(status)).Inc()
}

// IncMigrationLine counts one migrated guest line.
func (c *ClientMetrics) IncMigrationLine(kind, outcome string) {
	if c == nil || c.migrationLines == nil {
		return
	}
	c.migrationLines.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncInvalidation counts one terminal session clear.
func (c *ClientMetrics) IncInvalidation(reason string) {
	if c == nil || c.invalidations == nil {
		return
	}
	c.invalidations.WithLabelValues(normalizeLabel(reason)).Inc()
}

func statusLabel(status int) string {
	if status <= 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
