// Package metrics exposes Prometheus collectors for the publisher console.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "publisher"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// deployment API calls
	DeployCallsTotal   *prometheus.CounterVec
	DeployCallDuration *prometheus.HistogramVec

	// console state
	FallbackActivationsTotal *prometheus.CounterVec
	WorkspacesActive         prometheus.Gauge
	ValidationFailuresTotal  *prometheus.CounterVec

	// HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors. Each call uses its own registry so tests and
// multiple servers in one process never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DeployCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deploy_api_calls_total",
				Help:      "Total number of deployment API calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		DeployCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "deploy_api_call_duration_seconds",
				Help:      "Duration of deployment API calls in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		FallbackActivationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "offline_fallback_activations_total",
				Help:      "Number of times the console fell back to local data or local mutation",
			},
			[]string{"operation"},
		),
		WorkspacesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workspaces_active",
				Help:      "Number of operator workspaces held in memory",
			},
		),
		ValidationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_validation_failures_total",
				Help:      "Publish submissions rejected by local validation, by field",
			},
			[]string{"field"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of console HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of console HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDeployCall records a deployment API call.
func (m *Metrics) ObserveDeployCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DeployCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.DeployCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordFallback counts a fallback activation for operation.
func (m *Metrics) RecordFallback(operation string) {
	if m == nil {
		return
	}
	m.FallbackActivationsTotal.WithLabelValues(operation).Inc()
}

// RecordValidationFailure counts a rejected publish field.
func (m *Metrics) RecordValidationFailure(field string) {
	if m == nil {
		return
	}
	m.ValidationFailuresTotal.WithLabelValues(field).Inc()
}

// SetWorkspaces reports the number of live workspaces.
func (m *Metrics) SetWorkspaces(n int) {
	if m == nil {
		return
	}
	m.WorkspacesActive.Set(float64(n))
}

// RecordHTTPRequest records a served console request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
