// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package metrics provides Prometheus metrics for the scoring service.
// Metrics are exposed at the /metrics endpoint in Prometheus text
// format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation requests served",
		},
		[]string{"strategy", "cold_start"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Recommendation scoring latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_errors_total",
			Help: "Total number of failed recommendation requests",
		},
		[]string{"error_type"},
	)

	// Recommendation Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
		[]string{"reason"}, // "empty", "expired"
	)

	CacheBusts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_busts_total",
			Help: "Total number of cache invalidations from high-weight interactions",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommendation_cache_entries",
			Help: "Current number of cached recommendation responses",
		},
	)

	// Churn Metrics
	ChurnPredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Total number of churn predictions served",
		},
		[]string{"risk_tier"},
	)

	ChurnMissingFeatures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_missing_features_total",
			Help: "Total number of churn requests rejected for a missing feature",
		},
		[]string{"feature"},
	)

	// Model Metrics
	ModelLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_loads_total",
			Help: "Total number of model snapshot load attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	ModelSnapshotInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_snapshot_info",
			Help: "Currently loaded model snapshot, labeled by version (value is always 1)",
		},
		[]string{"version"},
	)

	// Interaction Store Metrics
	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_circuit_breaker_state",
			Help: "Interaction store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	StoreTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_timeouts_total",
			Help: "Total number of interaction store reads lost to timeouts or open breaker",
		},
	)
)

// RecordRecommendation records a served recommendation request.
func RecordRecommendation(strategy string, coldStart bool, duration time.Duration) {
	cold := "false"
	if coldStart {
		cold = "true"
	}
	RecommendationsTotal.WithLabelValues(strategy, cold).Inc()
	RecommendationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordRecommendationError records a failed recommendation request.
func RecordRecommendationError(errorType string) {
	RecommendationErrors.WithLabelValues(errorType).Inc()
}

// RecordCacheHit records a recommendation cache hit.
func RecordCacheHit() {
	CacheHits.Inc()
}

// RecordCacheMiss records a cache miss with its reason.
func RecordCacheMiss(reason string) {
	CacheMisses.WithLabelValues(reason).Inc()
}

// RecordCacheBust records a cache invalidation from an interaction.
func RecordCacheBust() {
	CacheBusts.Inc()
}

// SetCacheEntries updates the cached entry count.
func SetCacheEntries(n int) {
	CacheEntries.Set(float64(n))
}

// RecordChurnPrediction records a served churn prediction.
func RecordChurnPrediction(riskTier string) {
	ChurnPredictionsTotal.WithLabelValues(riskTier).Inc()
}

// RecordMissingFeature records a churn request rejected for a missing
// feature.
func RecordMissingFeature(feature string) {
	ChurnMissingFeatures.WithLabelValues(feature).Inc()
}

// RecordModelLoad records a snapshot load attempt and publishes the
// loaded version on success.
func RecordModelLoad(version string, err error) {
	if err != nil {
		ModelLoadsTotal.WithLabelValues("failure").Inc()
		return
	}
	ModelLoadsTotal.WithLabelValues("success").Inc()
	ModelSnapshotInfo.Reset()
	ModelSnapshotInfo.WithLabelValues(version).Set(1)
}

// RecordStoreTimeout records a store read lost to a timeout or an open
// breaker.
func RecordStoreTimeout() {
	StoreTimeouts.Inc()
}
