package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

func scoredPaper(id, title, doi, url string, citations int, source domain.SourceType) domain.ScoredResult {
	return domain.ScoredResult{
		RawResult: domain.RawResult{
			Title:         title,
			DOI:           doi,
			URL:           url,
			CitationCount: citations,
			Source:        source,
			CanonicalID:   id,
		},
	}
}

func TestDeduplicate_EmptyAndSingle(t *testing.T) {
	papers, stats := Deduplicate(nil, true)
	assert.Empty(t, papers)
	assert.Zero(t, stats.Merged)

	single := []domain.ScoredResult{
		scoredPaper("a", "Lone paper", "", "", 5, domain.SourceTypeOpenAlex),
	}
	papers, stats = Deduplicate(single, true)
	require.Len(t, papers, 1)
	assert.Equal(t, "a", papers[0].CanonicalID)
	assert.Empty(t, papers[0].Siblings)
	assert.Zero(t, stats.Merged)
}

func TestDeduplicate_NeverGrows(t *testing.T) {
	input := []domain.ScoredResult{
		scoredPaper("a", "Paper one", "10.1/x", "", 1, domain.SourceTypeOpenAlex),
		scoredPaper("b", "Paper two", "", "", 2, domain.SourceTypeCrossref),
		scoredPaper("c", "Paper one", "10.1/x", "", 3, domain.SourceTypeSemanticScholar),
	}
	papers, _ := Deduplicate(input, true)
	assert.LessOrEqual(t, len(papers), len(input))
}

func TestDeduplicate_SameDOIDifferentTitles(t *testing.T) {
	input := []domain.ScoredResult{
		scoredPaper("a", "BERT: Pre-training of Deep Bidirectional Transformers", "10.18653/v1/n19-1423", "", 100, domain.SourceTypeCrossref),
		scoredPaper("b", "BERT pre-training of deep bidirectional transformers for language understanding", "https://doi.org/10.18653/V1/N19-1423", "", 90, domain.SourceTypeOpenAlex),
	}

	papers, stats := Deduplicate(input, true)

	require.Len(t, papers, 1)
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, "a", papers[0].CanonicalID)
	assert.Equal(t, []string{"b"}, papers[0].Siblings)
}

func TestDeduplicate_BridgingRecordMergesClusters(t *testing.T) {
	// The third record shares its DOI with the first and its title with the
	// second, chaining all three into one logical paper.
	input := []domain.ScoredResult{
		scoredPaper("a", "Deep Residual Learning for Image Recognition", "10.1109/cvpr.2016.90", "", 80000, domain.SourceTypeCrossref),
		scoredPaper("b", "Deep residual learning", "", "", 70000, domain.SourceTypeOpenAlex),
		scoredPaper("c", "Deep Residual Learning", "10.1109/CVPR.2016.90", "", 75000, domain.SourceTypeSemanticScholar),
	}

	papers, stats := Deduplicate(input, true)

	require.Len(t, papers, 1)
	assert.Equal(t, 2, stats.Merged)
	assert.Equal(t, "a", papers[0].CanonicalID)
	assert.ElementsMatch(t, []string{"b", "c"}, papers[0].Siblings)
}

func TestDeduplicate_HighestCitationsWins(t *testing.T) {
	input := []domain.ScoredResult{
		scoredPaper("ten", "Shared title", "", "", 10, domain.SourceTypeOpenAlex),
		scoredPaper("hundred", "Shared Title!", "", "", 100, domain.SourceTypeCrossref),
		scoredPaper("fifty", "shared title", "", "", 50, domain.SourceTypeSemanticScholar),
	}

	papers, _ := Deduplicate(input, true)

	require.Len(t, papers, 1)
	assert.Equal(t, "hundred", papers[0].CanonicalID)
	assert.ElementsMatch(t, []string{"ten", "fifty"}, papers[0].Siblings)
}

func TestDeduplicate_JournalOverArxivWithPreprintLink(t *testing.T) {
	arxiv := scoredPaper("arxiv-id", "Attention Is All You Need", "",
		"https://arxiv.org/abs/1706.03762", 50000, domain.SourceTypeArXiv)
	journal := scoredPaper("journal-id", "Attention Is All You Need",
		"10.5555/3295222.3295349", "https://dl.acm.org/doi/10.5555/3295222.3295349",
		60000, domain.SourceTypeCrossref)

	t.Run("preprint linking enabled", func(t *testing.T) {
		papers, stats := Deduplicate([]domain.ScoredResult{arxiv, journal}, true)

		require.Len(t, papers, 1)
		assert.Equal(t, "journal-id", papers[0].CanonicalID)
		assert.Equal(t, "10.5555/3295222.3295349", papers[0].DOI)
		assert.Equal(t, "https://arxiv.org/abs/1706.03762", papers[0].PreprintID)
		assert.Equal(t, []string{"arxiv-id"}, papers[0].Siblings)
		assert.Equal(t, 1, stats.PreprintsLinked)
	})

	t.Run("preprint linking disabled keeps clustering", func(t *testing.T) {
		papers, stats := Deduplicate([]domain.ScoredResult{arxiv, journal}, false)

		require.Len(t, papers, 1)
		assert.Equal(t, "journal-id", papers[0].CanonicalID)
		assert.Empty(t, papers[0].PreprintID)
		assert.Equal(t, []string{"arxiv-id"}, papers[0].Siblings)
		assert.Zero(t, stats.PreprintsLinked)
	})
}

func TestDeduplicate_JournalBeatsMoreCitedArxiv(t *testing.T) {
	journal := scoredPaper("journal-id", "Some finding", "10.1000/j.2020.01", "", 50, domain.SourceTypeCrossref)
	arxiv := scoredPaper("arxiv-id", "Some finding", "", "https://arxiv.org/abs/2001.00001", 100, domain.SourceTypeArXiv)

	papers, _ := Deduplicate([]domain.ScoredResult{arxiv, journal}, true)

	require.Len(t, papers, 1)
	assert.Equal(t, "journal-id", papers[0].CanonicalID)
}

func TestDeduplicate_ArxivByURLPattern(t *testing.T) {
	// An arXiv preprint surfaced by a non-arXiv source still counts as one.
	preprint := scoredPaper("pre", "Novel method", "", "https://arxiv.org/abs/2106.01234", 10, domain.SourceTypeSemanticScholar)
	journal := scoredPaper("pub", "Novel method", "10.1000/nm.1", "https://example.org/nm1", 5, domain.SourceTypeCrossref)

	papers, _ := Deduplicate([]domain.ScoredResult{preprint, journal}, true)

	require.Len(t, papers, 1)
	assert.Equal(t, "pub", papers[0].CanonicalID)
	assert.Equal(t, "https://arxiv.org/abs/2106.01234", papers[0].PreprintID)
}

func TestDeduplicate_LoneDOIBearerWins(t *testing.T) {
	input := []domain.ScoredResult{
		scoredPaper("no-doi", "A result", "", "https://example.org/a", 500, domain.SourceTypeOpenAlex),
		scoredPaper("with-doi", "A result", "10.1000/r.1", "", 3, domain.SourceTypeCrossref),
	}

	papers, _ := Deduplicate(input, true)

	require.Len(t, papers, 1)
	assert.Equal(t, "with-doi", papers[0].CanonicalID)
}

func TestDeduplicate_FillsGapsFromSiblings(t *testing.T) {
	winner := scoredPaper("w", "Sparse record", "10.1/sparse", "", 10, domain.SourceTypeCrossref)
	sibling := scoredPaper("s", "Sparse record", "", "https://example.org/full", 1, domain.SourceTypeOpenAlex)
	sibling.Abstract = "The abstract only one source carried."
	sibling.Venue = "Nature"

	papers, _ := Deduplicate([]domain.ScoredResult{winner, sibling}, true)

	require.Len(t, papers, 1)
	assert.Equal(t, "w", papers[0].CanonicalID)
	assert.Equal(t, "The abstract only one source carried.", papers[0].Abstract)
	assert.Equal(t, "Nature", papers[0].Venue)
	assert.Equal(t, "https://example.org/full", papers[0].URL)
}

func TestDeduplicate_KeepsBestCombinedScore(t *testing.T) {
	low := scoredPaper("low", "Scored paper", "", "", 100, domain.SourceTypeOpenAlex)
	low.CombinedScore = 0.4
	high := scoredPaper("high", "Scored paper", "", "", 1, domain.SourceTypeCrossref)
	high.CombinedScore = 0.9

	papers, _ := Deduplicate([]domain.ScoredResult{low, high}, true)

	require.Len(t, papers, 1)
	// Representative is the most cited, but the cluster keeps its best score.
	assert.Equal(t, "low", papers[0].CanonicalID)
	assert.Equal(t, 0.9, papers[0].CombinedScore)
}

func TestSimpleDeduplicate_FirstEncounteredWins(t *testing.T) {
	input := []domain.ScoredResult{
		scoredPaper("first", "Duplicated work", "", "", 1, domain.SourceTypeOpenAlex),
		scoredPaper("second", "Duplicated work", "", "", 1000, domain.SourceTypeCrossref),
		scoredPaper("other", "Different work", "", "", 5, domain.SourceTypeArXiv),
	}

	papers := SimpleDeduplicate(input)

	require.Len(t, papers, 2)
	assert.Equal(t, "first", papers[0].CanonicalID)
	assert.Equal(t, []string{"second"}, papers[0].Siblings)
	assert.Empty(t, papers[0].PreprintID)
	assert.Equal(t, "other", papers[1].CanonicalID)
}

func TestSimpleDeduplicate_NoPreprintLinking(t *testing.T) {
	input := []domain.ScoredResult{
		scoredPaper("journal", "Linked work", "10.1/lw", "", 10, domain.SourceTypeCrossref),
		scoredPaper("arxiv", "Linked work", "", "https://arxiv.org/abs/2201.1", 50, domain.SourceTypeArXiv),
	}

	papers := SimpleDeduplicate(input)

	require.Len(t, papers, 1)
	assert.Equal(t, "journal", papers[0].CanonicalID)
	assert.Empty(t, papers[0].PreprintID)
}
