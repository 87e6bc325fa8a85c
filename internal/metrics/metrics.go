// Package metrics collects request and rollback metrics for the client.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client's collectors and the registry they live in.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	inFlightRequests prometheus.Gauge
	rollbacksTotal   *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_api_requests_total",
				Help: "Total number of task API requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskdeck_api_request_duration_seconds",
				Help:    "Duration of task API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.3, 1, 3, 10},
			},
			[]string{"method", "route"},
		),
		inFlightRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskdeck_api_in_flight_requests",
				Help: "Current number of in-flight task API requests",
			},
		),
		rollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdeck_store_rollbacks_total",
				Help: "Optimistic updates reverted after a failed remote call",
			},
			[]string{"op"},
		),
	}
}

// ObserveRollback counts a reverted optimistic update.
func (m *Metrics) ObserveRollback(op string) {
	if m == nil {
		return
	}
	m.rollbacksTotal.WithLabelValues(op).Inc()
}

// RoundTripper wraps next so every request is counted and timed.
// Transport errors are recorded with status "error".
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if m == nil {
		return next
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		m.inFlightRequests.Inc()
		defer m.inFlightRequests.Dec()

		route := NormalizeRoute(req.URL.Path)
		start := time.Now()

		resp, err := next.RoundTrip(req)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		m.requestsTotal.WithLabelValues(req.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		return resp, err
	})
}

// WriteFile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

// NormalizeRoute replaces the path segment following "tasks" or "upload"
// with a placeholder so ids and emails do not explode label cardinality.
func NormalizeRoute(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "tasks", "upload":
			if parts[i] != "" {
				parts[i] = "{id}"
			}
		}
	}
	return strings.Join(parts, "/")
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
