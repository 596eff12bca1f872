// Package sources provides interfaces and shared infrastructure for
// bibliographic database adapters.
//
// Each external database (OpenAlex, Crossref, Semantic Scholar, arXiv, CORE)
// and the internal content store implements the SourceAdapter interface,
// allowing the search orchestrator to fan out to all of them concurrently
// with a unified API. The package also hosts the shared rate-limited HTTP
// client, the per-source token-bucket rate limiters, and the short-TTL result
// cache the adapters are composed with.
//
// Example usage:
//
//	adapter := openalex.New(cfg)
//	opts := sources.SearchOptions{Limit: 25}
//	results, err := adapter.Search(ctx, "CRISPR gene editing", opts)
package sources

import (
	"context"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// SearchOptions holds per-call knobs shared by every adapter.
type SearchOptions struct {
	// Limit caps the number of results requested from the source. Sources
	// with smaller server-side maximums truncate further. Zero uses the
	// adapter's configured default.
	Limit int

	// FromYear filters out papers published before this year, where the
	// source supports it. Zero applies no bound.
	FromYear int

	// FastMode halves the effective limit for latency-sensitive callers.
	FastMode bool
}

// EffectiveLimit resolves the limit against a default, applying the fast-mode
// halving. Never returns less than 1.
func (o SearchOptions) EffectiveLimit(defaultLimit int) int {
	limit := o.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if o.FastMode {
		limit /= 2
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// SourceAdapter is implemented by every bibliographic database client.
//
// Search returns the source's results normalized into domain.RawResult.
// Adapters return errors for network failures, non-2xx statuses, and
// unparsable bodies; the orchestrator demotes those to response metadata
// rather than aborting the overall search. Adapters must respect context
// cancellation so the global search deadline propagates into in-flight
// requests.
type SourceAdapter interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.RawResult, error)

	// SourceType returns the tag identifying this source in results,
	// metadata, and configuration.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logging and metrics.
	Name() string

	// IsEnabled reports whether this source participates in searches. A
	// source may be disabled by configuration or a missing credential.
	IsEnabled() bool
}
