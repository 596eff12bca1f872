// Package internalstore adapts the paper repository into a search source.
//
// The internal store is queried like any external database: it serves papers
// discovered by earlier searches, and acts as a fallback when external
// sources return too little. Unlike the HTTP adapters it never fails on
// network conditions and needs no rate limiting.
package internalstore

import (
	"context"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources"
)

// DefaultMaxResults is the default maximum results per search request.
const DefaultMaxResults = 25

// SearchRepository is the subset of the paper repository the source needs.
type SearchRepository interface {
	SearchByText(ctx context.Context, query string, limit, fromYear int) ([]domain.RawResult, error)
}

// Config holds configuration for the internal store source.
type Config struct {
	// MaxResults is the default maximum results per search request.
	// Defaults to 25.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Source implements the sources.SourceAdapter interface over the repository.
type Source struct {
	config Config
	repo   SearchRepository
}

// Ensure Source implements SourceAdapter interface.
var _ sources.SourceAdapter = (*Source)(nil)

// New creates a new internal store source with the given configuration.
func New(cfg Config, repo SearchRepository) *Source {
	cfg.applyDefaults()
	return &Source{
		config: cfg,
		repo:   repo,
	}
}

// Search performs a ranked full-text search over previously stored papers.
func (s *Source) Search(ctx context.Context, query string, opts sources.SearchOptions) ([]domain.RawResult, error) {
	limit := opts.EffectiveLimit(s.config.MaxResults)

	results, err := s.repo.SearchByText(ctx, query, limit, opts.FromYear)
	if err != nil {
		return nil, err
	}

	// Stored rows already carry canonical IDs, but titles may have been
	// merged from sources with looser whitespace rules.
	finalized := make([]domain.RawResult, 0, len(results))
	for _, result := range results {
		if result.Finalize() {
			finalized = append(finalized, result)
		}
	}

	return finalized, nil
}

// SourceType returns the source type for the internal store.
func (s *Source) SourceType() domain.SourceType {
	return domain.SourceTypeInternal
}

// Name returns a human-readable name for this source.
func (s *Source) Name() string {
	return "Internal Store"
}

// IsEnabled returns whether this source is enabled. The source requires a
// configured repository in addition to the enabled flag.
func (s *Source) IsEnabled() bool {
	return s.config.Enabled && s.repo != nil
}
