package httpserver

import (
	"time"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/repository"
)

// storedPaperResponse is the JSON shape of a persisted canonical paper.
type storedPaperResponse struct {
	CanonicalID   string            `json:"canonical_id"`
	Title         string            `json:"title"`
	Abstract      string            `json:"abstract,omitempty"`
	Authors       []domain.Author   `json:"authors,omitempty"`
	Year          int               `json:"year,omitempty"`
	Venue         string            `json:"venue,omitempty"`
	DOI           string            `json:"doi,omitempty"`
	URL           string            `json:"url,omitempty"`
	CitationCount int               `json:"citation_count"`
	Source        domain.SourceType `json:"source"`
	Siblings      []string          `json:"siblings,omitempty"`
	PreprintID    string            `json:"preprint_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type listPapersResponse struct {
	Papers     []storedPaperResponse `json:"papers"`
	TotalCount int64                 `json:"total_count"`
}

func storedPaperToResponse(p *repository.StoredPaper) storedPaperResponse {
	return storedPaperResponse{
		CanonicalID:   p.CanonicalID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Authors:       p.Authors,
		Year:          p.Year,
		Venue:         p.Venue,
		DOI:           p.DOI,
		URL:           p.URL,
		CitationCount: p.CitationCount,
		Source:        p.Source,
		Siblings:      p.Siblings,
		PreprintID:    p.PreprintID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
