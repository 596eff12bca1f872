// Package semanticscholar provides a search client for the Semantic Scholar
// Graph API.
//
// Semantic Scholar is a free, AI-powered research tool for scientific
// literature maintained by the Allen Institute for AI. This package implements
// the sources.SourceAdapter interface for its paper relevance search endpoint.
//
// API Documentation: https://api.semanticscholar.org/api-docs/graph
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Next   int           `json:"next"`
	Data   []PaperResult `json:"data"`
}

// PaperResult represents a single paper in search results.
type PaperResult struct {
	PaperID         string       `json:"paperId"`
	ExternalIDs     *ExternalIDs `json:"externalIds"`
	Title           string       `json:"title"`
	Abstract        string       `json:"abstract"`
	Year            int          `json:"year"`
	PublicationDate string       `json:"publicationDate"`
	Venue           string       `json:"venue"`
	Journal         *Journal     `json:"journal"`
	Authors         []Author     `json:"authors"`
	CitationCount   int          `json:"citationCount"`
	URL             string       `json:"url"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI           string `json:"DOI"`
	ArXiv         string `json:"ArXiv"`
	PubMed        string `json:"PubMed"`
	PubMedCentral string `json:"PubMedCentral"`
	CorpusID      int    `json:"CorpusId"`
}

// Journal contains journal publication details.
type Journal struct {
	Name   string `json:"name"`
	Volume string `json:"volume"`
	Pages  string `json:"pages"`
}

// Author represents a paper author.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
