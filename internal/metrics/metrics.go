// Package metrics provides the Prometheus metrics registry for the reel worker.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "race_reels"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PhotosIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_ingested_total",
		Help:      "Total number of photos stored, by partition",
	}, []string{"partition"})
	SightingsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sightings_recorded_total",
		Help:      "Total number of sightings written to the ledger",
	})
	ExtractionFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_failures_total",
		Help:      "Total number of extractor failures recovered by storing the photo unprocessed",
	})
	ExtractionCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_cache_hits_total",
		Help:      "Total number of extraction results served from cache",
	})
	ReelsPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reels_published_total",
		Help:      "Total number of reels published",
	})
	PipelineErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_errors_total",
		Help:      "Total number of propagated pipeline errors, by request kind and error kind",
	}, []string{"request_kind", "error_kind"})
	ScratchDirsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scratch_dirs_swept_total",
		Help:      "Total number of stale scratch directories removed by the janitor",
	})
)

// Histogram metrics
var (
	IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "Duration of photo ingestion in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ReelDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reel_duration_seconds",
		Help:      "Duration of reel assembly in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PhotosIngestedTotal)
		registry.MustRegister(SightingsRecordedTotal)
		registry.MustRegister(ExtractionFailuresTotal)
		registry.MustRegister(ExtractionCacheHitsTotal)
		registry.MustRegister(ReelsPublishedTotal)
		registry.MustRegister(PipelineErrorsTotal)
		registry.MustRegister(ScratchDirsSweptTotal)

		registry.MustRegister(IngestDuration)
		registry.MustRegister(ReelDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPhotoIngested records a stored photo and the ingestion latency.
func RecordPhotoIngested(partition string, durationSeconds float64) {
	PhotosIngestedTotal.WithLabelValues(partition).Inc()
	IngestDuration.Observe(durationSeconds)
}

// RecordSighting records a ledger insert.
func RecordSighting() {
	SightingsRecordedTotal.Inc()
}

// RecordExtractionFailure records a recovered extractor failure.
func RecordExtractionFailure() {
	ExtractionFailuresTotal.Inc()
}

// RecordExtractionCacheHit records a cached extraction result.
func RecordExtractionCacheHit() {
	ExtractionCacheHitsTotal.Inc()
}

// RecordReelPublished records a published reel and the assembly latency.
func RecordReelPublished(durationSeconds float64) {
	ReelsPublishedTotal.Inc()
	ReelDuration.Observe(durationSeconds)
}

// RecordPipelineError records a propagated error.
func RecordPipelineError(requestKind, errorKind string) {
	if errorKind == "" {
		errorKind = "unknown"
	}
	PipelineErrorsTotal.WithLabelValues(requestKind, errorKind).Inc()
}

// RecordScratchSwept records removed scratch directories.
func RecordScratchSwept(count int) {
	ScratchDirsSweptTotal.Add(float64(count))
}
