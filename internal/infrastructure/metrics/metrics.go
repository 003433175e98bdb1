// Package metrics exposes Prometheus counters for workflow transitions,
// notification dispatch and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"journalflow/internal/ports"
)

const namespace = "journalflow"

// Recorder owns a private registry so tests and multiple apps in one process
// do not collide on metric names.
type Recorder struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	dispatches  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

var _ ports.Metrics = (*Recorder)(nil)

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Workflow operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification dispatch attempts by template and result",
			},
			[]string{"template", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "HTTP requests currently being served",
			},
		),
	}

	r.registry.MustRegister(
		r.transitions,
		r.dispatches,
		r.httpRequests,
		r.httpDuration,
		r.httpInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveTransition(operation string, result string) {
	r.transitions.WithLabelValues(operation, result).Inc()
}

func (r *Recorder) ObserveDispatch(template string, result string) {
	r.dispatches.WithLabelValues(template, result).Inc()
}

// ObserveHTTP records a finished request. route is the matched pattern, not the raw path.
func (r *Recorder) ObserveHTTP(method string, route string, status string, seconds float64) {
	r.httpRequests.WithLabelValues(method, route, status).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (r *Recorder) InFlight() prometheus.Gauge {
	return r.httpInFlight
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
