package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one service process
type Metrics struct {
	Registry        *prometheus.Registry
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RemoteAttempts  *prometheus.CounterVec
	Repayments      *prometheus.CounterVec
}

// New creates and registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		RemoteAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_call_attempts_total",
				Help: "Attempts made against peer services, by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		Repayments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayments_total",
				Help: "Processed repayments by result.",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.RemoteAttempts,
		m.Repayments,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveAttempt records one remote call attempt. Its signature matches
// retry.Observer.
func (m *Metrics) ObserveAttempt(op string, _ int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteAttempts.WithLabelValues(op, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
