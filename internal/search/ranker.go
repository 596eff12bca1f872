package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/embeddings"
)

const (
	// authoritySaturation is the citation count at which authorityScore
	// reaches 1.0 on the log scale. A handful of mega-cited papers should
	// not flatten every other signal.
	authoritySaturation = 10000

	// recencyWindowYears is the span over which recencyScore decays
	// linearly from 1.0 (this year) to 0.0.
	recencyWindowYears = 20

	// undatedRecencyScore is the floor for papers without a year: treated
	// as old, not buried.
	undatedRecencyScore = 0.1

	// titleOverlapShare is how much of keywordScore comes from query terms
	// appearing in the title specifically, versus title+abstract.
	titleOverlapShare = 0.3
)

// Weights are the relevance axis weights used to combine scores. Keyword is
// the implicit remainder; WeightsFromRequest computes it.
type Weights struct {
	Semantic  float64
	Authority float64
	Recency   float64
	Keyword   float64
}

// WeightsFromRequest extracts ranking weights from a normalized request.
func WeightsFromRequest(req *domain.SearchRequest) Weights {
	return Weights{
		Semantic:  req.SemanticWeight,
		Authority: req.AuthorityWeight,
		Recency:   req.RecencyWeight,
		Keyword:   req.KeywordWeight(),
	}
}

// Ranker attaches comparable [0,1] scores to raw results along four axes
// (semantic, keyword, authority, recency) and orders them by the weighted
// combination.
type Ranker struct {
	embedder embeddings.Embedder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRanker creates a ranker. A nil embedder disables semantic scoring; its
// weight is redistributed onto keyword overlap so combined scores stay
// comparable across deployments.
func NewRanker(embedder embeddings.Embedder, logger zerolog.Logger) *Ranker {
	return &Ranker{
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// Rank scores and sorts the results. The input slice is not modified. The
// output ordering is deterministic for identical inputs: combined score
// descending, then citation count descending, then year descending, then
// canonical ID ascending.
func (r *Ranker) Rank(ctx context.Context, query string, results []domain.RawResult, w Weights) []domain.ScoredResult {
	if len(results) == 0 {
		return nil
	}

	semanticScores := r.semanticScores(ctx, query, results)
	if semanticScores == nil {
		// No semantic signal available: fold its weight into the lexical
		// axis so the remaining scores still sum over the full weight.
		w.Keyword += w.Semantic
		w.Semantic = 0
	}

	queryTerms := tokenize(query)
	currentYear := r.now().Year()

	scored := make([]domain.ScoredResult, len(results))
	for i, res := range results {
		s := domain.ScoredResult{RawResult: res}
		if semanticScores != nil {
			s.SemanticScore = semanticScores[i]
		}
		s.KeywordScore = keywordScore(queryTerms, &res)
		s.AuthorityScore = authorityScore(res.CitationCount)
		s.RecencyScore = recencyScore(res.Year, currentYear)
		s.CombinedScore = w.Semantic*s.SemanticScore +
			w.Keyword*s.KeywordScore +
			w.Authority*s.AuthorityScore +
			w.Recency*s.RecencyScore
		scored[i] = s
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := &scored[i], &scored[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.CitationCount != b.CitationCount {
			return a.CitationCount > b.CitationCount
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.CanonicalID < b.CanonicalID
	})

	return scored
}

// semanticScores embeds the query and every paper in one batch and returns
// the per-paper cosine similarity, or nil when no semantic signal is
// available (no embedder, or the embedding call failed).
func (r *Ranker) semanticScores(ctx context.Context, query string, results []domain.RawResult) []float64 {
	if r.embedder == nil {
		return nil
	}

	texts := make([]string, 0, len(results)+1)
	texts = append(texts, query)
	for _, res := range results {
		texts = append(texts, embeddingText(&res))
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("model", r.embedder.Model()).
			Msg("Embedding failed, falling back to keyword scoring")
		return nil
	}
	if len(vectors) != len(texts) {
		return nil
	}

	queryVec := vectors[0]
	scores := make([]float64, len(results))
	for i := range results {
		scores[i] = embeddings.CosineSimilarity(queryVec, vectors[i+1])
	}
	return scores
}

// embeddingText is the text embedded per paper: title plus abstract.
func embeddingText(res *domain.RawResult) string {
	if res.Abstract == "" {
		return res.Title
	}
	return res.Title + "\n" + res.Abstract
}

// keywordScore measures lexical overlap between query terms and the paper:
// the fraction of query terms found in title+abstract, with a bonus share
// for terms found in the title itself.
func keywordScore(queryTerms []string, res *domain.RawResult) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	title := strings.ToLower(res.Title)
	body := title
	if res.Abstract != "" {
		body += " " + strings.ToLower(res.Abstract)
	}

	var bodyHits, titleHits int
	for _, term := range queryTerms {
		if strings.Contains(body, term) {
			bodyHits++
		}
		if strings.Contains(title, term) {
			titleHits++
		}
	}

	total := float64(len(queryTerms))
	bodyOverlap := float64(bodyHits) / total
	titleOverlap := float64(titleHits) / total
	return (1-titleOverlapShare)*bodyOverlap + titleOverlapShare*titleOverlap
}

// authorityScore maps a citation count onto [0,1] with log saturation.
func authorityScore(citations int) float64 {
	if citations <= 0 {
		return 0
	}
	score := math.Log1p(float64(citations)) / math.Log1p(authoritySaturation)
	if score > 1 {
		return 1
	}
	return score
}

// recencyScore decays linearly with age over the recency window. Papers
// without a year get the undated floor rather than zero; future-dated
// entries (online-first articles) clamp to 1.
func recencyScore(year, currentYear int) float64 {
	if year == 0 {
		return undatedRecencyScore
	}
	age := currentYear - year
	if age <= 0 {
		return 1
	}
	score := 1 - float64(age)/recencyWindowYears
	if score < 0 {
		return 0
	}
	return score
}

// tokenize splits a query into lowercase search terms, dropping
// single-character tokens.
func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if len(f) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}
