package domain

import (
	"time"
)

// Default values applied by SearchRequest.Normalize.
const (
	DefaultMaxResults = 25
	DefaultMinResults = 3
	DefaultTimeout    = 30 * time.Second

	DefaultSemanticWeight  = 0.4
	DefaultAuthorityWeight = 0.2
	DefaultRecencyWeight   = 0.1
)

// SearchRequest carries a free-text query plus the knobs that control how the
// search is executed and ranked.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`

	// MaxResults caps the final canonical paper list; MinResults is the
	// threshold below which fallback sources are tried.
	MaxResults int `json:"max_results" validate:"gte=0"`
	MinResults int `json:"min_results" validate:"gte=0"`

	// Sources restricts which adapters run. Unknown tags are ignored.
	// Empty means all configured sources.
	Sources []string `json:"sources,omitempty"`

	// UseInternalSearch and UseExternalAPIs independently toggle whether
	// the internal content store and the external API adapters participate.
	UseInternalSearch bool `json:"use_internal_search"`
	UseExternalAPIs   bool `json:"use_external_apis"`

	// FastMode halves the per-source result limit and shortens per-source
	// timeout allotments for latency-sensitive callers.
	FastMode bool `json:"fast_mode"`

	// Timeout is the global deadline for the whole search.
	Timeout time.Duration `json:"-"`
	// TimeoutMS is the wire form of Timeout.
	TimeoutMS int `json:"timeout_ms" validate:"gte=0"`

	// Ranking weights. Each must be in [0,1] and their sum must not exceed
	// 1; the remainder is the implicit keyword weight.
	SemanticWeight  float64 `json:"semantic_weight" validate:"gte=0,lte=1"`
	AuthorityWeight float64 `json:"authority_weight" validate:"gte=0,lte=1"`
	RecencyWeight   float64 `json:"recency_weight" validate:"gte=0,lte=1"`

	// FromYear filters out papers published before this year. Zero means
	// no lower bound.
	FromYear int `json:"from_year" validate:"gte=0"`

	// LocalRegion, when set, triggers the regional booster.
	LocalRegion string `json:"local_region,omitempty"`

	// LinkPreprints controls whether dedup records preprint URLs on
	// canonical records. Defaults to true.
	LinkPreprints bool `json:"link_preprints"`
}

// NewSearchRequest returns a request with defaults for the common case:
// all sources, both internal and external search, preprint linking on.
func NewSearchRequest(query string) SearchRequest {
	req := SearchRequest{
		Query:             query,
		UseInternalSearch: true,
		UseExternalAPIs:   true,
		LinkPreprints:     true,
	}
	req.Normalize()
	return req
}

// Normalize fills unset fields with defaults and reconciles the two timeout
// representations. Safe to call more than once.
func (r *SearchRequest) Normalize() {
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.MinResults == 0 {
		r.MinResults = DefaultMinResults
	}
	if r.Timeout == 0 && r.TimeoutMS > 0 {
		r.Timeout = time.Duration(r.TimeoutMS) * time.Millisecond
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}
	r.TimeoutMS = int(r.Timeout / time.Millisecond)
	if r.SemanticWeight == 0 && r.AuthorityWeight == 0 && r.RecencyWeight == 0 {
		r.SemanticWeight = DefaultSemanticWeight
		r.AuthorityWeight = DefaultAuthorityWeight
		r.RecencyWeight = DefaultRecencyWeight
	}
}

// KeywordWeight returns the implicit lexical weight: whatever remains after
// the explicit semantic, authority, and recency weights.
func (r *SearchRequest) KeywordWeight() float64 {
	w := 1.0 - r.SemanticWeight - r.AuthorityWeight - r.RecencyWeight
	if w < 0 {
		return 0
	}
	return w
}

// Validate checks the request for configuration errors. These are the only
// errors that fail a search fast, before any network activity.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return NewValidationError("query", "query is required")
	}
	if r.MaxResults < 0 {
		return NewValidationError("max_results", "must be >= 0")
	}
	if r.MinResults < 0 {
		return NewValidationError("min_results", "must be >= 0")
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"semantic_weight", r.SemanticWeight},
		{"authority_weight", r.AuthorityWeight},
		{"recency_weight", r.RecencyWeight},
	} {
		if w.value < 0 || w.value > 1 {
			return NewValidationError(w.name, "must be in [0,1]")
		}
	}
	if sum := r.SemanticWeight + r.AuthorityWeight + r.RecencyWeight; sum > 1 {
		return NewValidationError("weights", "semantic+authority+recency must not exceed 1")
	}
	if !r.UseInternalSearch && !r.UseExternalAPIs {
		return NewValidationError("sources", "internal search and external APIs cannot both be disabled")
	}
	return nil
}

// SourceError records a per-source failure surfaced in response metadata.
type SourceError struct {
	Source  SourceType `json:"source"`
	Message string     `json:"message"`
}

// SearchMetadata describes how a search was executed: which sources ran, how
// many results each produced, and which ones failed. A non-empty Errors list
// combined with zero papers indicates degraded service; zero papers with no
// errors is a genuine no-results query.
type SearchMetadata struct {
	StrategiesUsed   []SourceType       `json:"strategies_used"`
	PerSourceCounts  map[SourceType]int `json:"per_source_counts"`
	Errors           []SourceError      `json:"errors,omitempty"`
	ElapsedMS        int64              `json:"elapsed_ms"`
	CacheHits        int                `json:"cache_hits"`
	LocalRegionBoost bool               `json:"local_region_boost"`
	LocalPapersCount int                `json:"local_papers_count"`
}

// SearchResponse is the final product of a search: an ordered canonical paper
// list plus execution metadata.
type SearchResponse struct {
	Papers   []CanonicalPaper `json:"papers"`
	Metadata SearchMetadata   `json:"metadata"`
}
