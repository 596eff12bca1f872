package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// upsertQuery merges an incoming paper into an existing row keyed by
// canonical_id. Empty incoming text fields keep the stored value, years of
// zero keep the stored year, and citation counts take the maximum of both
// sides so a stale source never lowers a count.
const upsertQuery = `
	INSERT INTO papers (
		canonical_id, title, abstract, authors, year, venue,
		doi, url, citation_count, source, siblings, preprint_id,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13
	)
	ON CONFLICT (canonical_id) DO UPDATE SET
		title = EXCLUDED.title,
		abstract = COALESCE(NULLIF(EXCLUDED.abstract, ''), papers.abstract),
		authors = EXCLUDED.authors,
		year = COALESCE(NULLIF(EXCLUDED.year, 0), papers.year),
		venue = COALESCE(NULLIF(EXCLUDED.venue, ''), papers.venue),
		doi = COALESCE(NULLIF(EXCLUDED.doi, ''), papers.doi),
		url = COALESCE(NULLIF(EXCLUDED.url, ''), papers.url),
		citation_count = GREATEST(EXCLUDED.citation_count, papers.citation_count),
		source = EXCLUDED.source,
		siblings = EXCLUDED.siblings,
		preprint_id = COALESCE(NULLIF(EXCLUDED.preprint_id, ''), papers.preprint_id),
		updated_at = NOW()
	RETURNING created_at, updated_at`

// Upsert inserts a new paper or updates an existing one based on canonical_id.
func (r *PgPaperRepository) Upsert(ctx context.Context, paper *domain.CanonicalPaper) (*StoredPaper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.CanonicalID == "" {
		return nil, domain.NewValidationError("canonical_id", "canonical ID is required")
	}

	authorsJSON, siblingsJSON, err := marshalPaperFields(paper)
	if err != nil {
		return nil, err
	}

	stored := &StoredPaper{CanonicalPaper: *paper}
	now := time.Now().UTC()

	err = r.db.QueryRow(ctx, upsertQuery,
		paper.CanonicalID,
		paper.Title,
		paper.Abstract,
		authorsJSON,
		paper.Year,
		paper.Venue,
		paper.DOI,
		paper.URL,
		paper.CitationCount,
		paper.Source,
		siblingsJSON,
		paper.PreprintID,
		now,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert paper: %w", err)
	}

	return stored, nil
}

// BulkUpsert creates or updates multiple papers in a single network roundtrip.
// Uses pgx.Batch to send all upserts at once, dramatically reducing latency
// compared to individual queries.
func (r *PgPaperRepository) BulkUpsert(ctx context.Context, papers []*domain.CanonicalPaper) ([]*StoredPaper, error) {
	if len(papers) == 0 {
		return []*StoredPaper{}, nil
	}

	// Validate all papers have canonical IDs
	for i, paper := range papers {
		if paper == nil {
			return nil, domain.NewValidationError("paper", fmt.Sprintf("paper at index %d is nil", i))
		}
		if paper.CanonicalID == "" {
			return nil, domain.NewValidationError("canonical_id", fmt.Sprintf("paper at index %d has no canonical ID", i))
		}
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}

	for _, paper := range papers {
		authorsJSON, siblingsJSON, err := marshalPaperFields(paper)
		if err != nil {
			return nil, err
		}

		batch.Queue(upsertQuery,
			paper.CanonicalID,
			paper.Title,
			paper.Abstract,
			authorsJSON,
			paper.Year,
			paper.Venue,
			paper.DOI,
			paper.URL,
			paper.CitationCount,
			paper.Source,
			siblingsJSON,
			paper.PreprintID,
			now,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	results := make([]*StoredPaper, len(papers))
	for i, paper := range papers {
		stored := &StoredPaper{CanonicalPaper: *paper}
		if err := br.QueryRow().Scan(&stored.CreatedAt, &stored.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to upsert paper at index %d: %w", i, err)
		}
		results[i] = stored
	}

	return results, nil
}

// GetByCanonicalID retrieves a paper by its canonical identifier.
func (r *PgPaperRepository) GetByCanonicalID(ctx context.Context, canonicalID string) (*StoredPaper, error) {
	if canonicalID == "" {
		return nil, domain.NewValidationError("canonical_id", "canonical ID is required")
	}

	query := `
		SELECT canonical_id, title, abstract, authors, year, venue,
			doi, url, citation_count, source, siblings, preprint_id,
			created_at, updated_at
		FROM papers
		WHERE canonical_id = $1`

	row := r.db.QueryRow(ctx, query, canonicalID)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", canonicalID)
		}
		return nil, fmt.Errorf("failed to get paper by canonical ID: %w", err)
	}

	return paper, nil
}

// GetByDOI retrieves a paper by its normalized DOI.
func (r *PgPaperRepository) GetByDOI(ctx context.Context, doi string) (*StoredPaper, error) {
	norm := domain.NormalizeDOI(doi)
	if norm == "" {
		return nil, domain.NewValidationError("doi", "a valid DOI is required")
	}

	query := `
		SELECT canonical_id, title, abstract, authors, year, venue,
			doi, url, citation_count, source, siblings, preprint_id,
			created_at, updated_at
		FROM papers
		WHERE doi = $1`

	row := r.db.QueryRow(ctx, query, norm)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", norm)
		}
		return nil, fmt.Errorf("failed to get paper by DOI: %w", err)
	}

	return paper, nil
}

// SearchByText performs a ranked full-text search over stored papers.
func (r *PgPaperRepository) SearchByText(ctx context.Context, query string, limit, fromYear int) ([]domain.RawResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "query cannot be empty")
	}
	if limit <= 0 {
		limit = defaultFilterLimit
	}

	sql := `
		SELECT canonical_id, title, abstract, authors, year, venue,
			doi, url, citation_count
		FROM papers
		WHERE search_vector @@ websearch_to_tsquery('english', $1)`
	args := []interface{}{query}

	if fromYear > 0 {
		sql += fmt.Sprintf(" AND year >= $%d", len(args)+1)
		args = append(args, fromYear)
	}

	sql += fmt.Sprintf(`
		ORDER BY ts_rank(search_vector, websearch_to_tsquery('english', $1)) DESC
		LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search papers: %w", err)
	}
	defer rows.Close()

	results := make([]domain.RawResult, 0, limit)
	for rows.Next() {
		var result domain.RawResult
		var authorsJSON []byte
		err := rows.Scan(
			&result.CanonicalID, &result.Title, &result.Abstract, &authorsJSON,
			&result.Year, &result.Venue, &result.DOI, &result.URL, &result.CitationCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		if len(authorsJSON) > 0 {
			if err := json.Unmarshal(authorsJSON, &result.Authors); err != nil {
				return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
			}
		}
		result.Source = domain.SourceTypeInternal
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// List retrieves papers matching the filter criteria.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*StoredPaper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Source != nil {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argIndex))
		args = append(args, *filter.Source)
		argIndex++
	}

	if filter.FromYear != nil {
		conditions = append(conditions, fmt.Sprintf("year >= $%d", argIndex))
		args = append(args, *filter.FromYear)
		argIndex++
	}

	if filter.HasDOI != nil {
		if *filter.HasDOI {
			conditions = append(conditions, "doi != ''")
		} else {
			conditions = append(conditions, "doi = ''")
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	// Query with pagination
	selectQuery := fmt.Sprintf(`
		SELECT canonical_id, title, abstract, authors, year, venue,
			doi, url, citation_count, source, siblings, preprint_id,
			created_at, updated_at
		FROM papers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers := make([]*StoredPaper, 0, filter.Limit)
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating papers: %w", err)
	}

	return papers, totalCount, nil
}

// marshalPaperFields serializes the JSON columns of a paper.
func marshalPaperFields(paper *domain.CanonicalPaper) (authorsJSON, siblingsJSON []byte, err error) {
	authorsJSON, err = json.Marshal(paper.Authors)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal authors: %w", err)
	}
	siblingsJSON, err = json.Marshal(paper.Siblings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal siblings: %w", err)
	}
	return authorsJSON, siblingsJSON, nil
}

// paperScanDest holds the destination pointers for scanning a paper row.
type paperScanDest struct {
	paper        StoredPaper
	authorsJSON  []byte
	siblingsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.CanonicalID, &d.paper.Title, &d.paper.Abstract, &d.authorsJSON,
		&d.paper.Year, &d.paper.Venue, &d.paper.DOI, &d.paper.URL,
		&d.paper.CitationCount, &d.paper.Source, &d.siblingsJSON, &d.paper.PreprintID,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *paperScanDest) finalize() (*StoredPaper, error) {
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}

	if len(d.siblingsJSON) > 0 {
		if err := json.Unmarshal(d.siblingsJSON, &d.paper.Siblings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal siblings: %w", err)
		}
	}

	return &d.paper, nil
}

// scanPaper scans a single row into a StoredPaper.
func scanPaper(row pgx.Row) (*StoredPaper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanPaperFromRows scans the current row from pgx.Rows into a StoredPaper.
func scanPaperFromRows(rows pgx.Rows) (*StoredPaper, error) {
	var dest paperScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
