package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper discovery service.
// Metrics are organized by subsystem: searches, sources, papers, caching,
// deduplication, and embeddings. All counters and histograms are registered
// via promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SearchesStarted counts the total number of discovery searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts the total number of searches that finished successfully.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts the total number of searches that ended in failure.
	SearchesFailed prometheus.Counter

	// SearchDuration observes the end-to-end duration of searches in seconds.
	SearchDuration prometheus.Histogram

	// ResultsPerSearch observes the distribution of canonical papers returned per search.
	ResultsPerSearch prometheus.Histogram

	// SourceSearchesStarted counts per-source searches initiated, labeled by paper source.
	SourceSearchesStarted *prometheus.CounterVec

	// SourceSearchesCompleted counts successful per-source searches, labeled by paper source.
	SourceSearchesCompleted *prometheus.CounterVec

	// SourceSearchesFailed counts failed per-source searches, labeled by paper source.
	SourceSearchesFailed *prometheus.CounterVec

	// SourceSearchDuration observes per-source search duration in seconds.
	SourceSearchDuration *prometheus.HistogramVec

	// PapersPerSource observes the distribution of papers returned per source search.
	PapersPerSource *prometheus.HistogramVec

	// PapersDiscovered counts the total number of raw results gathered across sources.
	PapersDiscovered prometheus.Counter

	// PapersBySource counts papers discovered, labeled by paper source.
	PapersBySource *prometheus.CounterVec

	// PapersMerged counts the total number of raw results merged away during deduplication.
	PapersMerged prometheus.Counter

	// PreprintsLinked counts preprints matched to a published version during deduplication.
	PreprintsLinked prometheus.Counter

	// RegionBoosts counts results promoted by the regional boost, labeled by region.
	RegionBoosts *prometheus.CounterVec

	// FallbackInvocations counts fallback source activations, labeled by source.
	FallbackInvocations *prometheus.CounterVec

	// CacheHits counts per-source result cache hits, labeled by source.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts per-source result cache misses, labeled by source.
	CacheMisses *prometheus.CounterVec

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// EmbeddingRequestsTotal counts embedding API requests, labeled by model.
	EmbeddingRequestsTotal *prometheus.CounterVec

	// EmbeddingRequestsFailed counts failed embedding API requests, labeled by model and error type.
	EmbeddingRequestsFailed *prometheus.CounterVec

	// EmbeddingRequestDuration observes embedding API request duration in seconds, labeled by model.
	EmbeddingRequestDuration *prometheus.HistogramVec

	// EmbeddingBatchSize observes the number of texts embedded per request.
	EmbeddingBatchSize prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of discovery searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of discovery searches completed successfully",
		}),
		SearchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of discovery searches that failed",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of discovery searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		ResultsPerSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "results_per_search",
			Help:      "Number of canonical papers returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),

		// Per-source searches
		SourceSearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_started_total",
			Help:      "Total number of per-source searches started",
		}, []string{"source"}),
		SourceSearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_completed_total",
			Help:      "Total number of per-source searches completed",
		}, []string{"source"}),
		SourceSearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_failed_total",
			Help:      "Total number of per-source searches that failed",
		}, []string{"source"}),
		SourceSearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of per-source searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		PapersPerSource: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_source",
			Help:      "Number of papers returned per source search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),

		// Papers
		PapersDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discovered_total",
			Help:      "Total number of raw results discovered",
		}),
		PapersBySource: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_by_source_total",
			Help:      "Total number of papers discovered by source",
		}, []string{"source"}),
		PapersMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_merged_total",
			Help:      "Total number of duplicate results merged into canonical papers",
		}),
		PreprintsLinked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preprints_linked_total",
			Help:      "Total number of preprints linked to a published version",
		}),
		RegionBoosts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_boosts_total",
			Help:      "Total number of results promoted by the regional boost",
		}, []string{"region"}),
		FallbackInvocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_invocations_total",
			Help:      "Total number of fallback source activations",
		}, []string{"source"}),

		// Cache
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of per-source result cache hits",
		}, []string{"source"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of per-source result cache misses",
		}, []string{"source"}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to paper sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to paper sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),

		// Embeddings
		EmbeddingRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests by model",
		}, []string{"model"}),
		EmbeddingRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_failed_total",
			Help:      "Total number of failed embedding requests by model",
		}, []string{"model", "error_type"}),
		EmbeddingRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Duration of embedding requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"model"}),
		EmbeddingBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_batch_size",
			Help:      "Number of texts embedded per request",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// RecordSearchStarted records that a discovery search has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records that a discovery search has completed.
func (m *Metrics) RecordSearchCompleted(resultCount int, durationSeconds float64) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.ResultsPerSearch.Observe(float64(resultCount))
}

// RecordSearchFailed records that a discovery search has failed.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	m.SearchesFailed.Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordSourceSearchStarted records that a per-source search has started.
func (m *Metrics) RecordSourceSearchStarted(source string) {
	m.SourceSearchesStarted.WithLabelValues(source).Inc()
}

// RecordSourceSearchCompleted records that a per-source search has completed.
func (m *Metrics) RecordSourceSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SourceSearchesCompleted.WithLabelValues(source).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSource.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSourceSearchFailed records that a per-source search has failed.
func (m *Metrics) RecordSourceSearchFailed(source string, durationSeconds float64) {
	m.SourceSearchesFailed.WithLabelValues(source).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordPapersDiscovered records papers discovered from a source.
func (m *Metrics) RecordPapersDiscovered(source string, count int) {
	m.PapersDiscovered.Add(float64(count))
	m.PapersBySource.WithLabelValues(source).Add(float64(count))
}

// RecordPapersMerged records results merged away during deduplication.
func (m *Metrics) RecordPapersMerged(count int) {
	m.PapersMerged.Add(float64(count))
}

// RecordPreprintLinked records a preprint matched to a published version.
func (m *Metrics) RecordPreprintLinked() {
	m.PreprintsLinked.Inc()
}

// RecordRegionBoost records a result promoted by the regional boost.
func (m *Metrics) RecordRegionBoost(region string) {
	m.RegionBoosts.WithLabelValues(region).Inc()
}

// RecordFallbackInvocation records a fallback source activation.
func (m *Metrics) RecordFallbackInvocation(source string) {
	m.FallbackInvocations.WithLabelValues(source).Inc()
}

// RecordCacheHit records a per-source result cache hit.
func (m *Metrics) RecordCacheHit(source string) {
	m.CacheHits.WithLabelValues(source).Inc()
}

// RecordCacheMiss records a per-source result cache miss.
func (m *Metrics) RecordCacheMiss(source string) {
	m.CacheMisses.WithLabelValues(source).Inc()
}

// RecordSourceRequest records a request to a paper source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a paper source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordEmbeddingRequest records an embedding request.
func (m *Metrics) RecordEmbeddingRequest(model string, batchSize int, durationSeconds float64) {
	m.EmbeddingRequestsTotal.WithLabelValues(model).Inc()
	m.EmbeddingRequestDuration.WithLabelValues(model).Observe(durationSeconds)
	m.EmbeddingBatchSize.Observe(float64(batchSize))
}

// RecordEmbeddingRequestFailed records a failed embedding request.
func (m *Metrics) RecordEmbeddingRequestFailed(model, errorType string) {
	m.EmbeddingRequestsFailed.WithLabelValues(model, errorType).Inc()
}
