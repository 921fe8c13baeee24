// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeCached = "cached"
)

// Metrics holds all marketwatch Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	AdapterFetches  *prometheus.CounterVec
	AdapterDuration *prometheus.HistogramVec
	Searches        *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
	CuratedRecords  *prometheus.CounterVec
	HistoryRows     prometheus.Gauge
}

// New registers every instrument on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AdapterFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketwatch_adapter_fetch_total",
			Help: "Adapter fetches by adapter, category and outcome",
		}, []string{"adapter", "category", "outcome"}),
		AdapterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketwatch_adapter_fetch_seconds",
			Help:    "Adapter fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"adapter"}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketwatch_search_total",
			Help: "Aggregated searches by outcome (results, empty)",
		}, []string{"outcome"}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marketwatch_sessions_active",
			Help: "Sessions currently held in memory",
		}),
		CuratedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketwatch_curated_records_total",
			Help: "Records written into folders",
		}, []string{"type"}),
		HistoryRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marketwatch_history_rows",
			Help: "Rows in the currently loaded history dataset",
		}),
	}
}

// ObserveFetch records one adapter call.
func (m *Metrics) ObserveFetch(adapter, category, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AdapterFetches.WithLabelValues(adapter, category, outcome).Inc()
	m.AdapterDuration.WithLabelValues(adapter).Observe(elapsed.Seconds())
}

// ObserveSearch records an aggregated search.
func (m *Metrics) ObserveSearch(results int) {
	if m == nil {
		return
	}
	outcome := "results"
	if results == 0 {
		outcome = "empty"
	}
	m.Searches.WithLabelValues(outcome).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
