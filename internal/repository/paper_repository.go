package repository

import (
	"context"
	"time"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// StoredPaper is a canonical paper together with its persistence timestamps.
type StoredPaper struct {
	domain.CanonicalPaper

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaperRepository handles canonical paper persistence and full-text search.
// It backs both the GET-by-ID endpoint and the internal paper source, which
// queries previously discovered papers when external sources come up short.
type PaperRepository interface {
	// Upsert inserts a new paper or updates an existing one based on canonical_id.
	// Existing rows are merged: empty incoming fields keep the stored value,
	// citation counts take the maximum of both sides.
	// Returns domain.ErrInvalidInput if the paper has no canonical ID.
	Upsert(ctx context.Context, paper *domain.CanonicalPaper) (*StoredPaper, error)

	// BulkUpsert creates or updates multiple papers in a single network roundtrip.
	// Papers are matched by canonical_id with the same merge semantics as Upsert.
	// Returns domain.ErrInvalidInput if any paper has no canonical ID.
	//
	// Return contract:
	//   - Returned papers are in the same order as the input slice.
	//   - CreatedAt and UpdatedAt reflect the final database state after the upsert.
	BulkUpsert(ctx context.Context, papers []*domain.CanonicalPaper) ([]*StoredPaper, error)

	// GetByCanonicalID retrieves a paper by its canonical identifier.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByCanonicalID(ctx context.Context, canonicalID string) (*StoredPaper, error)

	// GetByDOI retrieves a paper by its normalized DOI.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByDOI(ctx context.Context, doi string) (*StoredPaper, error)

	// SearchByText performs a ranked full-text search over stored papers.
	// Results carry domain.SourceTypeInternal and are capped at limit.
	// A fromYear of zero disables year filtering.
	SearchByText(ctx context.Context, query string, limit, fromYear int) ([]domain.RawResult, error)

	// List retrieves papers matching the filter criteria.
	// Returns the matching papers and total count for pagination.
	// The total count reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter PaperFilter) ([]*StoredPaper, int64, error)
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// Source filters to papers discovered from a specific source (optional).
	Source *domain.SourceType

	// FromYear filters to papers published in or after this year (optional).
	FromYear *int

	// HasDOI filters to papers with a DOI (optional).
	// When true, only papers with a DOI are returned.
	// When false, only papers without a DOI are returned.
	// When nil, no filtering is applied.
	HasDOI *bool

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
