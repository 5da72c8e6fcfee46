// Package metrics exposes Prometheus instrumentation for the fleet API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the service updates.
type Metrics struct {
	registry *prometheus.Registry

	VehiclesAdded   prometheus.Counter
	DuplicateAdds   prometheus.Counter
	FleetSize       prometheus.Gauge
	CatalogLookups  *prometheus.CounterVec
	SummaryRequests *prometheus.CounterVec
	SummaryLatency  prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		VehiclesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_vehicles_added_total",
			Help: "Vehicles added to the fleet.",
		}),
		DuplicateAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_duplicate_adds_total",
			Help: "Add requests ignored because the identifier was already in the fleet.",
		}),
		FleetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_size",
			Help: "Vehicles currently in the fleet.",
		}),
		CatalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_lookups_total",
			Help: "Catalog lookups by outcome.",
		}, []string{"outcome"}),
		SummaryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_summary_requests_total",
			Help: "AI summary requests by outcome.",
		}, []string{"outcome"}),
		SummaryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ai_summary_duration_seconds",
			Help:    "Time spent waiting for the text-generation endpoint.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		}),
	}
	reg.MustRegister(m.VehiclesAdded, m.DuplicateAdds, m.FleetSize,
		m.CatalogLookups, m.SummaryRequests, m.SummaryLatency)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
