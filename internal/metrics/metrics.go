// Package metrics holds the Prometheus collectors of the window hub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all hub collectors
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     *prometheus.CounterVec

	// Window metrics
	WindowsOpen       prometheus.Gauge
	WindowsRegistered prometheus.Counter
	WindowsClosed     *prometheus.CounterVec
	WindowsReaped     prometheus.Counter

	// Relay metrics
	RelayConnections prometheus.Gauge
	RelayMessages    *prometheus.CounterVec
	RelayErrors      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry, so several hubs can live in
// one process
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framebridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_rate_limited_total",
				Help: "Requests and relayed messages rejected by the rate limiter",
			},
			[]string{"surface"},
		),

		WindowsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framebridge_windows_open",
				Help: "Number of open windows",
			},
		),
		WindowsRegistered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "framebridge_windows_registered_total",
				Help: "Total number of windows registered",
			},
		),
		WindowsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_windows_closed_total",
				Help: "Total number of windows closed",
			},
			[]string{"cause"},
		),
		WindowsReaped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "framebridge_windows_reaped_total",
				Help: "Closed windows forgotten after the retention period",
			},
		),

		RelayConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framebridge_relay_connections",
				Help: "Number of connected windows",
			},
		),
		RelayMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_relay_messages_total",
				Help: "Envelopes relayed between windows",
			},
			[]string{"type"},
		),
		RelayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framebridge_relay_errors_total",
				Help: "Envelopes the relay could not deliver",
			},
			[]string{"reason"},
		),
	}
}

// Handler serves the collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
