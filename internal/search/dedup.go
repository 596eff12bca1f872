package search

import (
	"strings"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// DedupStats reports what a deduplication pass did, for metrics and logging.
type DedupStats struct {
	// Merged is the number of input records absorbed into another record.
	Merged int
	// PreprintsLinked is the number of canonical records that got a
	// preprint URL attached.
	PreprintsLinked int
}

// cluster groups scored results describing the same work. Members keep
// ranked input order.
type cluster struct {
	members []domain.ScoredResult
}

// Deduplicate collapses scored results describing the same work into
// canonical papers, preserving the ranked order of each cluster's first
// appearance. Two records join a cluster when their normalized DOIs match or
// their normalized titles match.
//
// The representative within a cluster is chosen by: a lone DOI-bearing
// member wins; otherwise the highest-cited member among DOI-bearers (or
// among everyone when no DOI exists); a journal member with a DOI is
// preferred over an arXiv member regardless of citations, with the arXiv
// URL recorded as the canonical record's preprint link when linkPreprints
// is true.
func Deduplicate(results []domain.ScoredResult, linkPreprints bool) ([]domain.CanonicalPaper, DedupStats) {
	clusters := buildClusters(results)

	papers := make([]domain.CanonicalPaper, 0, len(clusters))
	var stats DedupStats
	for _, c := range clusters {
		rep, preprintURL := selectRepresentative(c.members)
		paper := toCanonicalPaper(c.members, rep)
		if linkPreprints && preprintURL != "" {
			paper.PreprintID = preprintURL
			stats.PreprintsLinked++
		}
		stats.Merged += len(c.members) - 1
		papers = append(papers, paper)
	}

	return papers, stats
}

// SimpleDeduplicate collapses duplicates keeping the first-encountered
// member of each cluster as representative, with no citation-based
// reordering and no preprint linking. Cheap, order-preserving dedup for
// callers that only need uniqueness.
func SimpleDeduplicate(results []domain.ScoredResult) []domain.CanonicalPaper {
	clusters := buildClusters(results)

	papers := make([]domain.CanonicalPaper, 0, len(clusters))
	for _, c := range clusters {
		papers = append(papers, toCanonicalPaper(c.members, 0))
	}
	return papers
}

// buildClusters groups results by normalized DOI or normalized title,
// preserving input order of first appearance. Either key matching joins the
// record to the existing cluster; both keys are then bound to that cluster.
// A record whose DOI and title hit two different clusters bridges them: the
// clusters are merged, so chained matches collapse transitively.
func buildClusters(results []domain.ScoredResult) []*cluster {
	var clusters []*cluster
	byDOI := make(map[string]*cluster)
	byTitle := make(map[string]*cluster)

	for _, res := range results {
		doiKey := domain.NormalizeDOI(res.DOI)
		titleKey := domain.NormalizeTitle(res.Title)

		var doiCluster, titleCluster *cluster
		if doiKey != "" {
			doiCluster = byDOI[doiKey]
		}
		if titleKey != "" {
			titleCluster = byTitle[titleKey]
		}

		c := doiCluster
		if c == nil {
			c = titleCluster
		}
		if c == nil {
			c = &cluster{}
			clusters = append(clusters, c)
		}

		if doiCluster != nil && titleCluster != nil && doiCluster != titleCluster {
			mergeClusters(doiCluster, titleCluster, byDOI, byTitle)
		}

		c.members = append(c.members, res)
		if doiKey != "" {
			byDOI[doiKey] = c
		}
		if titleKey != "" {
			byTitle[titleKey] = c
		}
	}

	// Merged-away clusters are left empty; drop them.
	kept := clusters[:0]
	for _, c := range clusters {
		if len(c.members) > 0 {
			kept = append(kept, c)
		}
	}
	return kept
}

// mergeClusters absorbs src into dst and repoints every key bound to src.
func mergeClusters(dst, src *cluster, byDOI, byTitle map[string]*cluster) {
	dst.members = append(dst.members, src.members...)
	src.members = nil
	for k, v := range byDOI {
		if v == src {
			byDOI[k] = dst
		}
	}
	for k, v := range byTitle {
		if v == src {
			byTitle[k] = dst
		}
	}
}

// selectRepresentative picks the winning member index and, when a journal
// member beat an arXiv sibling, the arXiv URL to record as preprint link.
func selectRepresentative(members []domain.ScoredResult) (rep int, preprintURL string) {
	if len(members) == 1 {
		return 0, ""
	}

	doiBearers := make([]int, 0, len(members))
	for i := range members {
		if members[i].HasDOI() {
			doiBearers = append(doiBearers, i)
		}
	}

	// Journal-over-preprint: a DOI from a non-arXiv source beats an arXiv
	// record regardless of citation counts.
	journalBearers := make([]int, 0, len(doiBearers))
	for _, i := range doiBearers {
		if !isArxivRecord(&members[i].RawResult) {
			journalBearers = append(journalBearers, i)
		}
	}
	if len(journalBearers) > 0 {
		for i := range members {
			if isArxivRecord(&members[i].RawResult) {
				preprintURL = members[i].URL
				break
			}
		}
	}

	switch {
	case len(journalBearers) > 0:
		rep = mostCited(members, journalBearers)
	case len(doiBearers) == 1:
		rep = doiBearers[0]
	case len(doiBearers) > 1:
		rep = mostCited(members, doiBearers)
	default:
		all := make([]int, len(members))
		for i := range members {
			all[i] = i
		}
		rep = mostCited(members, all)
	}

	if preprintURL != "" && members[rep].URL == preprintURL {
		// The arXiv record itself won (no journal bearer); nothing to link.
		preprintURL = ""
	}
	return rep, preprintURL
}

// mostCited returns the candidate index with the highest citation count,
// keeping the earliest (highest-ranked) on ties.
func mostCited(members []domain.ScoredResult, candidates []int) int {
	best := candidates[0]
	for _, i := range candidates[1:] {
		if members[i].CitationCount > members[best].CitationCount {
			best = i
		}
	}
	return best
}

// isArxivRecord reports whether a record is an arXiv preprint, either by
// source tag or by URL pattern (other sources index arXiv entries too).
func isArxivRecord(res *domain.RawResult) bool {
	if res.Source == domain.SourceTypeArXiv {
		return true
	}
	return strings.Contains(strings.ToLower(res.URL), "arxiv.org")
}

// toCanonicalPaper builds the canonical record from a cluster: the
// representative's field values, the best combined score in the cluster,
// and every other member's canonical ID as a sibling.
func toCanonicalPaper(members []domain.ScoredResult, rep int) domain.CanonicalPaper {
	r := members[rep]
	paper := domain.CanonicalPaper{
		Title:         r.Title,
		Authors:       r.Authors,
		Year:          r.Year,
		Abstract:      r.Abstract,
		Venue:         r.Venue,
		DOI:           r.DOI,
		URL:           r.URL,
		CitationCount: r.CitationCount,
		Source:        r.Source,
		CanonicalID:   r.CanonicalID,
		CombinedScore: r.CombinedScore,
	}

	seen := map[string]bool{r.CanonicalID: true}
	for i, m := range members {
		if m.CombinedScore > paper.CombinedScore {
			paper.CombinedScore = m.CombinedScore
		}
		if i == rep || seen[m.CanonicalID] {
			continue
		}
		seen[m.CanonicalID] = true
		paper.Siblings = append(paper.Siblings, m.CanonicalID)

		// Fill gaps the representative leaves: duplicates from richer
		// sources often carry the abstract or venue the winner lacks.
		if paper.Abstract == "" && m.Abstract != "" {
			paper.Abstract = m.Abstract
		}
		if paper.Venue == "" && m.Venue != "" {
			paper.Venue = m.Venue
		}
		if paper.URL == "" && m.URL != "" {
			paper.URL = m.URL
		}
	}

	return paper
}
