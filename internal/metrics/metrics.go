// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package metrics provides Prometheus instrumentation for the engine:
// pipeline throughput, model training/prediction, offer generation, and
// offer event tracking. Metrics are registered with the default registry
// and exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics

	RecordsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_records_normalized_total",
			Help: "Raw records processed by normalization",
		},
		[]string{"source", "outcome"}, // outcome: ok, error
	)

	ProfilesAggregated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_profiles_aggregated_total",
			Help: "Customer profiles produced by aggregation",
		},
	)

	// Model metrics

	ModelTrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Duration of model training runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	ModelPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_predictions_total",
			Help: "Prediction calls by model and outcome",
		},
		[]string{"model", "outcome"}, // outcome: success, error
	)

	SegmentCustomers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "segment_customers",
			Help: "Customers assigned per segment in the latest prediction",
		},
		[]string{"segment"},
	)

	// Offer metrics

	OffersGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offers_generated_total",
			Help: "Offers generated by offer type",
		},
		[]string{"offer_type"},
	)

	OfferEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_events_total",
			Help: "Offer outcome events tracked by type",
		},
		[]string{"event_type", "offer_type"},
	)

	OfferEventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offer_events_deduplicated_total",
			Help: "Offer events dropped as duplicates",
		},
	)

	EventFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_flush_duration_seconds",
			Help:    "Duration of offer event batch flushes to the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_buffer_size",
			Help: "Offer events currently buffered awaiting flush",
		},
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveTraining records a completed training run.
func ObserveTraining(model string, start time.Time) {
	ModelTrainingDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
}
