// Package prometheus exposes engine metrics through a dedicated registry so
// the handler serves only application series.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AppMetrics implements the scenario metrics sink.
type AppMetrics struct {
	registry *prometheus.Registry

	analysisDuration *prometheus.HistogramVec
	analysisResults  *prometheus.CounterVec
	analysisFailures *prometheus.CounterVec
	weightCache      *prometheus.CounterVec
}

func NewAppMetrics() *AppMetrics {
	m := &AppMetrics{
		registry: prometheus.NewRegistry(),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "corprisk",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one scenario analysis run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"scenario"}),
		analysisResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corprisk",
			Name:      "analysis_results_total",
			Help:      "Risk results produced, summed over runs.",
		}, []string{"scenario"}),
		analysisFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corprisk",
			Name:      "analysis_failures_total",
			Help:      "Scenario runs that ended in an error.",
		}, []string{"scenario"}),
		weightCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corprisk",
			Name:      "weight_cache_requests_total",
			Help:      "Edge weight cache lookups by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.analysisDuration,
		m.analysisResults,
		m.analysisFailures,
		m.weightCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *AppMetrics) ObserveAnalysis(scenario string, d time.Duration, resultCount int, failed bool) {
	m.analysisDuration.WithLabelValues(scenario).Observe(d.Seconds())
	if failed {
		m.analysisFailures.WithLabelValues(scenario).Inc()
		return
	}
	m.analysisResults.WithLabelValues(scenario).Add(float64(resultCount))
}

func (m *AppMetrics) ObserveWeightCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.weightCache.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *AppMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
