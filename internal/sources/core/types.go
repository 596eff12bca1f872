// Package core provides a search client for the CORE v3 API.
//
// CORE aggregates open access research papers from repositories and journals
// worldwide. All requests require an API key. This package implements the
// sources.SourceAdapter interface for the works search endpoint.
//
// API Documentation: https://api.core.ac.uk/docs/v3
package core

// SearchResponse represents the response from the search works endpoint.
type SearchResponse struct {
	TotalHits int    `json:"totalHits"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	Results   []Work `json:"results"`
}

// Work represents a research output in CORE.
type Work struct {
	ID            int64    `json:"id"`
	DOI           string   `json:"doi"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	YearPublished int      `json:"yearPublished"`
	PublishedDate string   `json:"publishedDate"`
	Publisher     string   `json:"publisher"`
	Authors       []Author `json:"authors"`
	CitationCount int      `json:"citationCount"`
	DownloadURL   string   `json:"downloadUrl"`
	Links         []Link   `json:"links"`
}

// Author represents a work author.
type Author struct {
	Name string `json:"name"`
}

// Link represents a related URL for a work.
type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}
