// Package metrics exposes Prometheus instrumentation for the repository
// core: catalog saves, manifest builds, coherence checks, and the
// expiration engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog metrics
	CatalogSaveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_catalog_save_total",
			Help: "Total number of catalog (backup.info/archive.info) saves, by catalog and outcome",
		},
		[]string{"catalog", "outcome"},
	)

	CatalogCopyFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_catalog_copy_fallback_total",
			Help: "Total number of times a metadata file load fell back to its .copy pair",
		},
		[]string{"file"},
	)

	CatalogLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgbackrest_repo_catalog_load_duration_seconds",
			Help:    "Duration of checksummed-INI catalog loads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"catalog"},
	)

	// Manifest metrics
	ManifestBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgbackrest_repo_manifest_build_duration_seconds",
			Help:    "Duration of a manifest build walk",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
		},
	)

	ManifestFilesTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgbackrest_repo_manifest_files_total",
			Help:    "Number of file records in a built manifest",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	ManifestSealDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgbackrest_repo_manifest_seal_duration_seconds",
			Help:    "Duration of the copy-then-primary manifest seal write",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Coherence metrics
	CoherenceCheckTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_coherence_check_total",
			Help: "Total coherence checks performed, by check and outcome",
		},
		[]string{"check", "outcome"},
	)

	// Expiration metrics
	ExpireDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgbackrest_repo_expire_duration_seconds",
			Help:    "Duration of a full expiration run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		},
	)

	ExpireBackupsRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_expire_backups_removed_total",
			Help: "Total backups removed by expiration, by reason",
		},
		[]string{"reason"},
	)

	ExpireArchiveSegmentsRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_expire_archive_segments_removed_total",
			Help: "Total WAL archive segments removed by expiration",
		},
	)

	ExpireHistoryFilesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_expire_history_files_removed_total",
			Help: "Total timeline-history files removed by expiration",
		},
	)

	ExpireSkippedInProgressTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackrest_repo_expire_skipped_in_progress_total",
			Help: "Total in-progress (unsealed) backups skipped during expiration",
		},
	)
)

func init() {
	prometheus.MustRegister(CatalogSaveTotal)
	prometheus.MustRegister(CatalogCopyFallbackTotal)
	prometheus.MustRegister(CatalogLoadDuration)

	prometheus.MustRegister(ManifestBuildDuration)
	prometheus.MustRegister(ManifestFilesTotal)
	prometheus.MustRegister(ManifestSealDuration)

	prometheus.MustRegister(CoherenceCheckTotal)

	prometheus.MustRegister(ExpireDuration)
	prometheus.MustRegister(ExpireBackupsRemovedTotal)
	prometheus.MustRegister(ExpireArchiveSegmentsRemovedTotal)
	prometheus.MustRegister(ExpireHistoryFilesRemovedTotal)
	prometheus.MustRegister(ExpireSkippedInProgressTotal)
}

// Handler returns the Prometheus HTTP handler for a metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
