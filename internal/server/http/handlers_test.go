package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadiq-codes/paper-discovery-service/internal/database"
	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/repository"
)

// stubSearcher records the last request and returns a canned response.
type stubSearcher struct {
	lastReq domain.SearchRequest
	resp    *domain.SearchResponse
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

// stubPaperRepo backs the paper endpoints with canned data.
type stubPaperRepo struct {
	paper      *repository.StoredPaper
	papers     []*repository.StoredPaper
	total      int64
	err        error
	lastFilter repository.PaperFilter
	lastID     string
	lastDOI    string
}

func (r *stubPaperRepo) Upsert(ctx context.Context, paper *domain.CanonicalPaper) (*repository.StoredPaper, error) {
	return nil, errors.New("not implemented")
}

func (r *stubPaperRepo) BulkUpsert(ctx context.Context, papers []*domain.CanonicalPaper) ([]*repository.StoredPaper, error) {
	return nil, errors.New("not implemented")
}

func (r *stubPaperRepo) GetByCanonicalID(ctx context.Context, canonicalID string) (*repository.StoredPaper, error) {
	r.lastID = canonicalID
	return r.paper, r.err
}

func (r *stubPaperRepo) GetByDOI(ctx context.Context, doi string) (*repository.StoredPaper, error) {
	r.lastDOI = doi
	return r.paper, r.err
}

func (r *stubPaperRepo) SearchByText(ctx context.Context, query string, limit, fromYear int) ([]domain.RawResult, error) {
	return nil, errors.New("not implemented")
}

func (r *stubPaperRepo) List(ctx context.Context, filter repository.PaperFilter) ([]*repository.StoredPaper, int64, error) {
	r.lastFilter = filter
	return r.papers, r.total, r.err
}

// stubHealth reports a fixed health status.
type stubHealth struct {
	status database.HealthStatus
}

func (h *stubHealth) Health(ctx context.Context) database.HealthStatus {
	return h.status
}

func newTestServer(searcher Searcher, repo repository.PaperRepository, health HealthChecker) *Server {
	return NewServer(Config{Address: ":0"}, searcher, repo, health, zerolog.Nop())
}

func testStoredPaper() *repository.StoredPaper {
	return &repository.StoredPaper{
		CanonicalPaper: domain.CanonicalPaper{
			CanonicalID:   "3f6f7f2a-1111-5222-8333-444455556666",
			Title:         "Attention Is All You Need",
			Authors:       []domain.Author{{Name: "Ashish Vaswani"}},
			Year:          2017,
			DOI:           "10.5555/3295222.3295349",
			CitationCount: 90000,
			Source:        domain.SourceTypeSemanticScholar,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func doRequest(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearchPapers(t *testing.T) {
	t.Run("successful search returns papers and metadata", func(t *testing.T) {
		searcher := &stubSearcher{
			resp: &domain.SearchResponse{
				Papers: []domain.CanonicalPaper{
					{CanonicalID: "abc", Title: "Found paper", CombinedScore: 0.9},
				},
				Metadata: domain.SearchMetadata{
					StrategiesUsed:  []domain.SourceType{domain.SourceTypeOpenAlex},
					PerSourceCounts: map[domain.SourceType]int{domain.SourceTypeOpenAlex: 1},
					ElapsedMS:       42,
				},
			},
		}
		server := newTestServer(searcher, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query":       "transformer architectures",
			"max_results": 10,
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp domain.SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Papers, 1)
		assert.Equal(t, "Found paper", resp.Papers[0].Title)
		assert.Equal(t, int64(42), resp.Metadata.ElapsedMS)

		// Toggles default on when absent from the body.
		assert.Equal(t, "transformer architectures", searcher.lastReq.Query)
		assert.Equal(t, 10, searcher.lastReq.MaxResults)
		assert.True(t, searcher.lastReq.UseInternalSearch)
		assert.True(t, searcher.lastReq.UseExternalAPIs)
		assert.True(t, searcher.lastReq.LinkPreprints)
	})

	t.Run("explicit toggles are honored", func(t *testing.T) {
		searcher := &stubSearcher{resp: &domain.SearchResponse{}}
		server := newTestServer(searcher, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query":               "toggles",
			"use_internal_search": false,
			"link_preprints":      false,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, searcher.lastReq.UseInternalSearch)
		assert.True(t, searcher.lastReq.UseExternalAPIs)
		assert.False(t, searcher.lastReq.LinkPreprints)
	})

	t.Run("no results is a 200 with empty papers", func(t *testing.T) {
		searcher := &stubSearcher{
			resp: &domain.SearchResponse{
				Metadata: domain.SearchMetadata{
					StrategiesUsed: []domain.SourceType{domain.SourceTypeOpenAlex},
				},
			},
			err: domain.ErrNoResults,
		}
		server := newTestServer(searcher, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query": "obscure nonsense nobody wrote about",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Papers)
		assert.NotEmpty(t, resp.Metadata.StrategiesUsed)
	})

	t.Run("missing query is rejected", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query": "   ",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "query is required")
	})

	t.Run("invalid JSON body is rejected", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("out-of-range weight is rejected before searching", func(t *testing.T) {
		searcher := &stubSearcher{}
		server := newTestServer(searcher, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query":           "weights",
			"semantic_weight": 1.5,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, searcher.lastReq.Query)
	})

	t.Run("validation error from searcher maps to 400", func(t *testing.T) {
		searcher := &stubSearcher{err: domain.NewValidationError("weights", "must not exceed 1")}
		server := newTestServer(searcher, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query": "boom",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unexpected error maps to 500", func(t *testing.T) {
		searcher := &stubSearcher{err: errors.New("kaboom")}
		server := newTestServer(searcher, nil, nil)

		rec := doRequest(t, server, http.MethodPost, "/api/v1/search", map[string]any{
			"query": "boom",
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "kaboom")
	})
}

func TestGetPaperByCanonicalID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo := &stubPaperRepo{paper: testStoredPaper()}
		server := newTestServer(&stubSearcher{}, repo, nil)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/papers/3f6f7f2a-1111-5222-8333-444455556666", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3f6f7f2a-1111-5222-8333-444455556666", repo.lastID)

		var resp storedPaperResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Attention Is All You Need", resp.Title)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &stubPaperRepo{err: domain.NewNotFoundError("paper", "nope")}
		server := newTestServer(&stubSearcher{}, repo, nil)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/papers/nope", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store not configured", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, nil, nil)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/papers/some-id", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGetPaperByDOI(t *testing.T) {
	repo := &stubPaperRepo{paper: testStoredPaper()}
	server := newTestServer(&stubSearcher{}, repo, nil)

	// DOIs contain slashes; the route is a catch-all.
	rec := doRequest(t, server, http.MethodGet, "/api/v1/papers/doi/10.5555/3295222.3295349", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.5555/3295222.3295349", repo.lastDOI)
}

func TestListPapers(t *testing.T) {
	t.Run("filters and pagination", func(t *testing.T) {
		repo := &stubPaperRepo{papers: []*repository.StoredPaper{testStoredPaper()}, total: 1}
		server := newTestServer(&stubSearcher{}, repo, nil)

		rec := doRequest(t, server, http.MethodGet,
			"/api/v1/papers?source=openalex&from_year=2020&has_doi=true&limit=500&offset=10", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, repo.lastFilter.Source)
		assert.Equal(t, domain.SourceTypeOpenAlex, *repo.lastFilter.Source)
		require.NotNil(t, repo.lastFilter.FromYear)
		assert.Equal(t, 2020, *repo.lastFilter.FromYear)
		require.NotNil(t, repo.lastFilter.HasDOI)
		assert.True(t, *repo.lastFilter.HasDOI)
		assert.Equal(t, maxPageSize, repo.lastFilter.Limit)
		assert.Equal(t, 10, repo.lastFilter.Offset)

		var resp listPapersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.TotalCount)
		require.Len(t, resp.Papers, 1)
	})

	t.Run("unknown source is rejected", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, &stubPaperRepo{}, nil)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/papers?source=scopus", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid from_year is rejected", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, &stubPaperRepo{}, nil)

		rec := doRequest(t, server, http.MethodGet, "/api/v1/papers?from_year=abc", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz always ok", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, nil, nil)

		rec := doRequest(t, server, http.MethodGet, "/healthz", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz healthy database", func(t *testing.T) {
		health := &stubHealth{status: database.HealthStatus{Status: "healthy"}}
		server := newTestServer(&stubSearcher{}, nil, health)

		rec := doRequest(t, server, http.MethodGet, "/readyz", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ready")
	})

	t.Run("readyz unhealthy database", func(t *testing.T) {
		health := &stubHealth{status: database.HealthStatus{Status: "unhealthy", Error: "connection refused"}}
		server := newTestServer(&stubSearcher{}, nil, health)

		rec := doRequest(t, server, http.MethodGet, "/readyz", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_ready")
	})

	t.Run("readyz without database", func(t *testing.T) {
		server := newTestServer(&stubSearcher{}, nil, nil)

		rec := doRequest(t, server, http.MethodGet, "/readyz", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_configured")
	})
}

func TestRequestIDPropagation(t *testing.T) {
	server := newTestServer(&stubSearcher{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
