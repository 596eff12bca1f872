package search

import (
	"strings"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"

	"github.com/sadiq-codes/paper-discovery-service/internal/region"
)

// BoostResult reports what a regional boost pass did.
type BoostResult struct {
	// Boosted is true when at least one paper matched the requested region
	// and the list was reordered.
	Boosted bool
	// MatchCount is the number of papers matching the requested region.
	MatchCount int
}

// AttachRegions resolves a country of origin for papers that do not carry
// one yet, using the paper's URL first and its venue as fallback. A nil
// detector leaves papers untouched.
func AttachRegions(papers []domain.CanonicalPaper, detector region.Detector) {
	if detector == nil {
		return
	}
	for i := range papers {
		if papers[i].Region != "" {
			continue
		}
		country, confidence := detector.Detect(papers[i].URL)
		if venueCountry, venueConfidence := detector.Detect(papers[i].Venue); venueConfidence > confidence {
			country = venueCountry
		}
		papers[i].Region = country
	}
}

// BoostRegion stable-partitions papers so those matching localRegion come
// first, both groups preserving their relative order. Matching papers get
// their combined score multiplied by boostFactor (1 disables the score
// adjustment), capped at 1 so scores stay in [0,1]. An empty localRegion or
// zero matches returns the list unchanged.
func BoostRegion(papers []domain.CanonicalPaper, localRegion string, boostFactor float64) ([]domain.CanonicalPaper, BoostResult) {
	if localRegion == "" || len(papers) == 0 {
		return papers, BoostResult{}
	}
	if boostFactor < 1 {
		boostFactor = 1
	}

	matching := make([]domain.CanonicalPaper, 0, len(papers))
	rest := make([]domain.CanonicalPaper, 0, len(papers))
	for _, p := range papers {
		if strings.EqualFold(p.Region, localRegion) {
			p.CombinedScore *= boostFactor
			if p.CombinedScore > 1 {
				p.CombinedScore = 1
			}
			matching = append(matching, p)
		} else {
			rest = append(rest, p)
		}
	}

	if len(matching) == 0 {
		return papers, BoostResult{}
	}

	return append(matching, rest...), BoostResult{
		Boosted:    true,
		MatchCount: len(matching),
	}
}
