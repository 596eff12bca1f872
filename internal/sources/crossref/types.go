// Package crossref provides a search client for the Crossref REST API.
//
// Crossref is the DOI registration agency for scholarly publishing and exposes
// metadata for over 150 million registered works. This package implements the
// sources.SourceAdapter interface for searching works on Crossref.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// SearchResponse represents the top-level response from the Crossref works endpoint.
type SearchResponse struct {
	Status  string  `json:"status"`
	Message Message `json:"message"`
}

// Message contains the result payload of a works query.
type Message struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// Work represents a registered work in Crossref.
type Work struct {
	DOI             string     `json:"DOI"`
	Title           []string   `json:"title"`
	Author          []Author   `json:"author"`
	ContainerTitle  []string   `json:"container-title"`
	Abstract        string     `json:"abstract"`
	URL             string     `json:"URL"`
	Type            string     `json:"type"`
	IsReferencedBy  int        `json:"is-referenced-by-count"`
	Published       *DateParts `json:"published"`
	PublishedPrint  *DateParts `json:"published-print"`
	PublishedOnline *DateParts `json:"published-online"`
	Issued          *DateParts `json:"issued"`
}

// Author represents a work contributor.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// DateParts holds Crossref's partial-date representation: an array of
// [year, month, day] arrays, any suffix of which may be missing.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component, or 0 when absent.
func (d *DateParts) Year() int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}
