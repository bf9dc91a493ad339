// Package metrics exposes Prometheus collectors for the analytics pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bet_analytics"

// PerformanceMonitor collects adapter, sync, strategy and HTTP metrics
type PerformanceMonitor struct {
	registry *prometheus.Registry

	// Adapter metrics
	AdapterFetchDuration *prometheus.HistogramVec
	AdapterFetches       *prometheus.CounterVec
	SourceReliability    *prometheus.GaugeVec
	SourceLatency        *prometheus.GaugeVec

	// Sync metrics
	SyncDuration   prometheus.Histogram
	SyncsTotal     *prometheus.CounterVec
	SnapshotCounts *prometheus.GaugeVec

	// Strategy metrics
	OpportunitiesTotal *prometheus.CounterVec
	RecommendedBets    *prometheus.CounterVec
	RecommendedStake   *prometheus.GaugeVec
	AlertsSent         *prometheus.CounterVec

	// HTTP metrics
	HTTPDuration *prometheus.HistogramVec
}

// NewPerformanceMonitor registers every collector on registry, or on a new
// registry when nil.
func NewPerformanceMonitor(registry *prometheus.Registry) *PerformanceMonitor {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &PerformanceMonitor{
		registry: registry,

		AdapterFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "adapter_fetch_duration_seconds",
				Help:      "Adapter fetch latency",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"source"},
		),
		AdapterFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_fetches_total",
				Help:      "Adapter fetches by outcome",
			},
			[]string{"source", "status"},
		),
		SourceReliability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "source_reliability",
				Help:      "Exponential moving average of fetch success per source",
			},
			[]string{"source"},
		),
		SourceLatency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "source_latency_ms",
				Help:      "Exponential moving average of fetch latency per source",
			},
			[]string{"source"},
		),

		SyncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Integration sync duration",
				Buckets:   prometheus.DefBuckets,
			},
		),
		SyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "syncs_total",
				Help:      "Integration syncs by outcome",
			},
			[]string{"status"},
		),
		SnapshotCounts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_entities",
				Help:      "Entities in the latest integrated snapshot",
			},
			[]string{"kind"},
		),

		OpportunitiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "opportunities_total",
				Help:      "Opportunities generated by the strategy engine",
			},
			[]string{"profile", "kind"},
		),
		RecommendedBets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommended_bets_total",
				Help:      "Bets selected into recommendations",
			},
			[]string{"profile", "risk_level"},
		),
		RecommendedStake: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "recommended_stake",
				Help:      "Total stake of the latest recommendation per profile",
			},
			[]string{"profile"},
		),
		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_sent_total",
				Help:      "Bet alerts by delivery status",
			},
			[]string{"status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	registry.MustRegister(
		m.AdapterFetchDuration,
		m.AdapterFetches,
		m.SourceReliability,
		m.SourceLatency,
		m.SyncDuration,
		m.SyncsTotal,
		m.SnapshotCounts,
		m.OpportunitiesTotal,
		m.RecommendedBets,
		m.RecommendedStake,
		m.AlertsSent,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the underlying registry
func (m *PerformanceMonitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *PerformanceMonitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAdapterFetch records one adapter fetch
func (m *PerformanceMonitor) RecordAdapterFetch(source string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AdapterFetchDuration.WithLabelValues(source).Observe(d.Seconds())
	m.AdapterFetches.WithLabelValues(source, status).Inc()
}

// SetSourceHealth updates the EMA gauges for a source
func (m *PerformanceMonitor) SetSourceHealth(source string, reliability, latencyMs float64) {
	m.SourceReliability.WithLabelValues(source).Set(reliability)
	m.SourceLatency.WithLabelValues(source).Set(latencyMs)
}

// RecordSync records a completed sync. A sync with failed sources is "partial",
// one where every source failed is "failed".
func (m *PerformanceMonitor) RecordSync(d time.Duration, sources, failed int) {
	status := "success"
	switch {
	case sources > 0 && failed >= sources:
		status = "failed"
	case failed > 0:
		status = "partial"
	}
	m.SyncDuration.Observe(d.Seconds())
	m.SyncsTotal.WithLabelValues(status).Inc()
}

// SetSnapshotCounts replaces the snapshot entity gauges
func (m *PerformanceMonitor) SetSnapshotCounts(counts map[string]int) {
	for kind, n := range counts {
		m.SnapshotCounts.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordOpportunities counts generated opportunities by kind
func (m *PerformanceMonitor) RecordOpportunities(profile string, byKind map[string]int) {
	for kind, n := range byKind {
		m.OpportunitiesTotal.WithLabelValues(profile, kind).Add(float64(n))
	}
}

// RecordRecommendation counts selected bets and sets the profile's stake gauge
func (m *PerformanceMonitor) RecordRecommendation(profile string, byRisk map[string]int, totalStake float64) {
	for risk, n := range byRisk {
		m.RecommendedBets.WithLabelValues(profile, risk).Add(float64(n))
	}
	m.RecommendedStake.WithLabelValues(profile).Set(totalStake)
}

// RecordAlert counts one alert delivery attempt
func (m *PerformanceMonitor) RecordAlert(err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.AlertsSent.WithLabelValues(status).Inc()
}

// ObserveHTTP records one HTTP request
func (m *PerformanceMonitor) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
