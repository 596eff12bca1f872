package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/repository"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxQueryLength     = 10000
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchRequestBody is the JSON request body for POST /search. Boolean
// toggles are pointers so an absent field keeps its default (true) instead
// of JSON's zero value.
type searchRequestBody struct {
	Query             string   `json:"query" validate:"required"`
	MaxResults        int      `json:"max_results" validate:"gte=0,lte=500"`
	MinResults        int      `json:"min_results" validate:"gte=0"`
	Sources           []string `json:"sources,omitempty"`
	UseInternalSearch *bool    `json:"use_internal_search,omitempty"`
	UseExternalAPIs   *bool    `json:"use_external_apis,omitempty"`
	FastMode          bool     `json:"fast_mode"`
	TimeoutMS         int      `json:"timeout_ms" validate:"gte=0,lte=120000"`
	SemanticWeight    float64  `json:"semantic_weight" validate:"gte=0,lte=1"`
	AuthorityWeight   float64  `json:"authority_weight" validate:"gte=0,lte=1"`
	RecencyWeight     float64  `json:"recency_weight" validate:"gte=0,lte=1"`
	FromYear          int      `json:"from_year" validate:"gte=0,lte=2100"`
	LocalRegion       string   `json:"local_region,omitempty"`
	LinkPreprints     *bool    `json:"link_preprints,omitempty"`
}

// toDomain converts the wire body into a domain request, applying the
// default-on toggles.
func (b *searchRequestBody) toDomain() domain.SearchRequest {
	req := domain.NewSearchRequest(strings.TrimSpace(b.Query))
	req.MaxResults = b.MaxResults
	req.MinResults = b.MinResults
	req.Sources = b.Sources
	req.FastMode = b.FastMode
	req.TimeoutMS = b.TimeoutMS
	req.Timeout = 0
	req.SemanticWeight = b.SemanticWeight
	req.AuthorityWeight = b.AuthorityWeight
	req.RecencyWeight = b.RecencyWeight
	req.FromYear = b.FromYear
	req.LocalRegion = strings.TrimSpace(b.LocalRegion)

	if b.UseInternalSearch != nil {
		req.UseInternalSearch = *b.UseInternalSearch
	}
	if b.UseExternalAPIs != nil {
		req.UseExternalAPIs = *b.UseExternalAPIs
	}
	if b.LinkPreprints != nil {
		req.LinkPreprints = *b.LinkPreprints
	}

	req.Normalize()
	return req
}

// searchPapers handles POST /api/v1/search: the primary discovery entry
// point. An empty result set is a 200 with zero papers; callers tell a
// genuine no-results query apart from degraded service via metadata.errors.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", maxQueryLength))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp, err := s.searcher.Search(r.Context(), req.toDomain())
	if err != nil && !errors.Is(err, domain.ErrNoResults) {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// getPaperByCanonicalID handles GET /api/v1/papers/{canonicalID}.
func (s *Server) getPaperByCanonicalID(w http.ResponseWriter, r *http.Request) {
	if s.paperRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "paper store not configured")
		return
	}

	canonicalID := chi.URLParam(r, "canonicalID")
	paper, err := s.paperRepo.GetByCanonicalID(r.Context(), canonicalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storedPaperToResponse(paper))
}

// getPaperByDOI handles GET /api/v1/papers/doi/*. The DOI is a catch-all
// path segment because DOIs contain slashes.
func (s *Server) getPaperByDOI(w http.ResponseWriter, r *http.Request) {
	if s.paperRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "paper store not configured")
		return
	}

	doi := chi.URLParam(r, "*")
	paper, err := s.paperRepo.GetByDOI(r.Context(), doi)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storedPaperToResponse(paper))
}

// listPapers handles GET /api/v1/papers with optional source, from_year,
// and has_doi filters plus limit/offset pagination.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	if s.paperRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "paper store not configured")
		return
	}

	limit, offset := parsePaginationParams(r)
	filter := repository.PaperFilter{
		Limit:  limit,
		Offset: offset,
	}

	if sourceParam := r.URL.Query().Get("source"); sourceParam != "" {
		source := domain.SourceType(sourceParam)
		if !source.IsValid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown source: %s", sourceParam))
			return
		}
		filter.Source = &source
	}

	if yearParam := r.URL.Query().Get("from_year"); yearParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil || year < 0 {
			writeError(w, http.StatusBadRequest, "from_year must be a non-negative integer")
			return
		}
		filter.FromYear = &year
	}

	if doiParam := r.URL.Query().Get("has_doi"); doiParam != "" {
		hasDOI, err := strconv.ParseBool(doiParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "has_doi must be a boolean")
			return
		}
		filter.HasDOI = &hasDOI
	}

	papers, totalCount, err := s.paperRepo.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]storedPaperResponse, len(papers))
	for i, p := range papers {
		responses[i] = storedPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:     responses,
		TotalCount: totalCount,
	})
}

// writeDomainError maps a domain error to an HTTP status code and writes
// the error response.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePaginationParams extracts limit/offset query parameters, clamping
// them to sane bounds.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		if v, err := strconv.Atoi(offsetParam); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
