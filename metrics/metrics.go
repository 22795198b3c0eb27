// Package metrics holds the Prometheus collectors for the trade client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors registered on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	Calls         *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	NoncesIssued  prometheus.Counter
	Completions   *prometheus.CounterVec
	Generation    prometheus.Gauge
	LateResponses *prometheus.CounterVec
}

// New creates and registers all collectors
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradeclient"
	}

	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exchange",
				Name:      "calls_total",
				Help:      "Calls issued to the exchange by kind and result class.",
			},
			[]string{"kind", "result"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "exchange",
				Name:      "call_duration_seconds",
				Help:      "Duration of exchange calls.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
			},
			[]string{"kind"},
		),
		NoncesIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exchange",
				Name:      "nonces_issued_total",
				Help:      "Nonces drawn for signed requests.",
			},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "completions_total",
				Help:      "Operation completions by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		Generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "generation",
				Help:      "Current application context generation.",
			},
		),
		LateResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "late_responses_total",
				Help:      "Responses that arrived after their caller timed out.",
			},
			[]string{"operation", "outcome"},
		),
	}

	m.Registry.MustRegister(
		m.Calls,
		m.CallDuration,
		m.NoncesIssued,
		m.Completions,
		m.Generation,
		m.LateResponses,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
