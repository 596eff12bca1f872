package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// paperNamespace is the UUID namespace for canonical paper identifiers.
// Canonical IDs are UUIDv5 content hashes scoped to this namespace, so the
// same logical paper always hashes to the same ID across runs and processes.
var paperNamespace = uuid.MustParse("6f2a9c1e-4b8d-5a37-9e61-2c85d0f4a914")

// Author represents a paper author as reported by a source.
type Author struct {
	Name string `json:"name"`
}

// RawResult is one paper as reported by one source, before ranking and
// deduplication. Title is the only required field; everything else is
// best-effort vendor metadata.
type RawResult struct {
	Title         string     `json:"title"`
	Authors       []Author   `json:"authors,omitempty"`
	Year          int        `json:"year,omitempty"`
	Abstract      string     `json:"abstract,omitempty"`
	Venue         string     `json:"venue,omitempty"`
	DOI           string     `json:"doi,omitempty"`
	URL           string     `json:"url,omitempty"`
	CitationCount int        `json:"citation_count,omitempty"`
	Source        SourceType `json:"source"`
	CanonicalID   string     `json:"canonical_id"`
}

// FirstAuthor returns the name of the first listed author, or "" if none.
func (r *RawResult) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0].Name
}

// HasDOI reports whether the result carries a usable DOI.
func (r *RawResult) HasDOI() bool {
	return NormalizeDOI(r.DOI) != ""
}

// ComputeCanonicalID derives the canonical identifier for a raw result.
// When a usable DOI exists, the ID is a hash of the normalized DOI; otherwise
// it hashes normalizedTitle|normalizedFirstAuthor|year. Identical inputs
// always produce identical IDs, which is what makes records joinable across
// sources and across requests.
func ComputeCanonicalID(title, firstAuthor string, year int, doi string) string {
	if norm := NormalizeDOI(doi); norm != "" {
		return uuid.NewSHA1(paperNamespace, []byte("doi:"+norm)).String()
	}
	key := fmt.Sprintf("%s|%s|%d", NormalizeTitle(title), NormalizeAuthorName(firstAuthor), year)
	return uuid.NewSHA1(paperNamespace, []byte(key)).String()
}

// Finalize fills in the canonical ID and applies field fallbacks that every
// adapter shares: a missing author name becomes "N/A" and titles are trimmed.
// Returns false if the result has no title and must be discarded.
func (r *RawResult) Finalize() bool {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return false
	}
	for i := range r.Authors {
		if strings.TrimSpace(r.Authors[i].Name) == "" {
			r.Authors[i].Name = "N/A"
		}
	}
	r.CanonicalID = ComputeCanonicalID(r.Title, r.FirstAuthor(), r.Year, r.DOI)
	return true
}

// ScoredResult is a RawResult with relevance scores attached by the hybrid
// ranker. All axis scores are in [0,1]; CombinedScore is the weighted sum,
// also in [0,1].
type ScoredResult struct {
	RawResult

	SemanticScore  float64 `json:"semantic_score"`
	KeywordScore   float64 `json:"keyword_score"`
	AuthorityScore float64 `json:"authority_score"`
	RecencyScore   float64 `json:"recency_score"`
	CombinedScore  float64 `json:"combined_score"`
}

// CanonicalPaper is the deduplicated, rankable unit returned to callers.
// Field values come from the cluster's winning representative; Siblings
// records the canonical IDs merged into this record.
type CanonicalPaper struct {
	Title         string     `json:"title"`
	Authors       []Author   `json:"authors,omitempty"`
	Year          int        `json:"year,omitempty"`
	Abstract      string     `json:"abstract,omitempty"`
	Venue         string     `json:"venue,omitempty"`
	DOI           string     `json:"doi,omitempty"`
	URL           string     `json:"url,omitempty"`
	CitationCount int        `json:"citation_count,omitempty"`
	Source        SourceType `json:"source"`
	CanonicalID   string     `json:"canonical_id"`

	// Siblings holds the canonical IDs of non-representative duplicates
	// merged into this record. Never contains the record's own ID.
	Siblings []string `json:"siblings,omitempty"`

	// PreprintID is the URL/ID of a linked preprint version, when a
	// journal representative absorbed an arXiv duplicate.
	PreprintID string `json:"preprint_id,omitempty"`

	// Region is the detected country of origin, attached before regional
	// boosting. Empty when unknown or when no boost was requested.
	Region string `json:"region,omitempty"`

	CombinedScore float64 `json:"combined_score"`
}
