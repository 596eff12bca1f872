// Package observability provides logging and metrics support for the paper
// discovery service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, sources, caching, and deduplication
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("search started")
//
// Add search context to logger:
//
//	logger = observability.WithSearchContext(logger, query, source)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("paper_discovery")
//
// Record metrics:
//
//	metrics.SearchesStarted.Inc()
//	metrics.SourceSearchesStarted.WithLabelValues("semantic_scholar").Inc()
//	metrics.PapersDiscovered.Add(42)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: Search request identifier
//   - query: User's free-text query
//   - source: Paper source (semantic_scholar, openalex, etc.)
//   - canonical_id: Canonical paper identifier
//   - doi: Normalized DOI
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
