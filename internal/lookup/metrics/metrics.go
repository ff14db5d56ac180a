// Package metrics exposes Prometheus instrumentation for the postal and
// geocoding lookup paths. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	ProviderCalls  *prometheus.CounterVec
	BreakerOpen    *prometheus.GaugeVec
	StaleResults   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solarintake_lookup_cache_hits_total",
			Help: "Lookup cache hits by kind (postal, geocode)",
		}, []string{"kind"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solarintake_lookup_cache_misses_total",
			Help: "Lookup cache misses by kind",
		}, []string{"kind"}),
		LookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solarintake_lookup_duration_seconds",
			Help:    "Duration of cache reads and provider calls",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solarintake_lookup_provider_calls_total",
			Help: "Provider calls by provider and outcome category",
		}, []string{"provider", "outcome"}),
		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solarintake_lookup_breaker_open",
			Help: "1 while the provider circuit breaker is open",
		}, []string{"provider"}),
		StaleResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solarintake_lookup_stale_results_total",
			Help: "Lookup results discarded because a newer request superseded them",
		}, []string{"branch"}),
	}
}

func (m *Metrics) RecordCacheHit(kind string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCacheMiss(kind string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveLookupDuration(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordProviderCall counts one upstream call; outcome is "ok" or an error
// category.
func (m *Metrics) RecordProviderCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) SetBreakerOpen(provider string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(provider).Set(v)
}

func (m *Metrics) RecordStaleResult(branch string) {
	if m == nil {
		return
	}
	m.StaleResults.WithLabelValues(branch).Inc()
}
