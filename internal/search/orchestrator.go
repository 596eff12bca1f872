// Package search implements the discovery pipeline: concurrent fan-out to
// bibliographic sources, hybrid ranking, deduplication into canonical
// papers, and regional boosting.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/observability"
	"github.com/sadiq-codes/paper-discovery-service/internal/region"
	"github.com/sadiq-codes/paper-discovery-service/internal/repository"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources"
)

// Default orchestration policy values.
const (
	DefaultMinResults           = 3
	DefaultSourceBudgetFraction = 0.8
	DefaultRegionBoostFactor    = 1.1

	// persistTimeout bounds the background write of discovered papers so a
	// slow database never outlives the request by much.
	persistTimeout = 15 * time.Second
)

// DefaultFallbackChain is the ordered secondary-source chain tried when the
// primary fan-out comes back thin.
var DefaultFallbackChain = []domain.SourceType{
	domain.SourceTypeCORE,
	domain.SourceTypeInternal,
}

// Config holds the orchestration policy knobs.
type Config struct {
	// MinResults is the merged-result threshold below which the fallback
	// chain is tried.
	MinResults int

	// FallbackChain is the ordered list of secondary sources queried
	// sequentially when the primary fan-out yields fewer than MinResults.
	FallbackChain []domain.SourceType

	// SourceBudgetFraction is the share of the global deadline each source
	// task gets as its individual allotment. Fast mode halves it.
	SourceBudgetFraction float64

	// RegionBoostFactor multiplies the combined score of papers matching
	// the requested local region.
	RegionBoostFactor float64
}

func (c *Config) applyDefaults() {
	if c.MinResults == 0 {
		c.MinResults = DefaultMinResults
	}
	if c.FallbackChain == nil {
		c.FallbackChain = DefaultFallbackChain
	}
	if c.SourceBudgetFraction <= 0 || c.SourceBudgetFraction > 1 {
		c.SourceBudgetFraction = DefaultSourceBudgetFraction
	}
	if c.RegionBoostFactor < 1 {
		c.RegionBoostFactor = DefaultRegionBoostFactor
	}
}

// PaperStore persists discovered canonical papers. Satisfied by
// repository.PaperRepository.
type PaperStore interface {
	BulkUpsert(ctx context.Context, papers []*domain.CanonicalPaper) ([]*repository.StoredPaper, error)
}

// Orchestrator coordinates the whole discovery pipeline for one search:
// source selection, concurrent fan-out with per-source allotments, the
// sequential fallback chain, ranking, dedup, regional boosting, and the
// optional background persist.
type Orchestrator struct {
	config   Config
	registry *sources.Registry
	cache    *sources.ResultCache
	ranker   *Ranker
	detector region.Detector
	store    PaperStore
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewOrchestrator creates an orchestrator. The store and detector are
// optional: a nil store disables persistence, a nil detector disables
// region attachment (papers may still carry pre-attached regions).
func NewOrchestrator(
	cfg Config,
	registry *sources.Registry,
	cache *sources.ResultCache,
	ranker *Ranker,
	detector region.Detector,
	store PaperStore,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		config:   cfg,
		registry: registry,
		cache:    cache,
		ranker:   ranker,
		detector: detector,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

// sourceOutcome is what one source task produced.
type sourceOutcome struct {
	source   domain.SourceType
	results  []domain.RawResult
	err      error
	cacheHit bool
}

// Search runs the full discovery pipeline for a request.
//
// Individual source failures never abort the search; they are demoted to
// metadata entries. The returned error is non-nil only for invalid requests
// and for the explicit no-results outcome (domain.ErrNoResults), in which
// case the response is still populated so callers can inspect metadata and
// distinguish degraded service from a genuine empty query.
func (o *Orchestrator) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	o.metrics.RecordSearchStarted()

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	meta := domain.SearchMetadata{
		PerSourceCounts: make(map[domain.SourceType]int),
	}
	tried := make(map[domain.SourceType]bool)

	adapters := o.selectSources(&req, &meta)
	merged := o.fanOut(ctx, &req, adapters, &meta, tried)
	merged = o.runFallbackChain(ctx, &req, merged, &meta, tried)

	scored := o.ranker.Rank(ctx, req.Query, merged, WeightsFromRequest(&req))
	papers, stats := Deduplicate(scored, req.LinkPreprints)
	o.metrics.RecordPapersMerged(stats.Merged)
	for i := 0; i < stats.PreprintsLinked; i++ {
		o.metrics.RecordPreprintLinked()
	}

	if req.LocalRegion != "" {
		AttachRegions(papers, o.detector)
		var boost BoostResult
		papers, boost = BoostRegion(papers, req.LocalRegion, o.config.RegionBoostFactor)
		meta.LocalRegionBoost = boost.Boosted
		meta.LocalPapersCount = boost.MatchCount
		if boost.Boosted {
			o.metrics.RecordRegionBoost(req.LocalRegion)
		}
	}

	if len(papers) > req.MaxResults {
		papers = papers[:req.MaxResults]
	}

	meta.ElapsedMS = time.Since(start).Milliseconds()
	resp := &domain.SearchResponse{Papers: papers, Metadata: meta}

	if len(papers) == 0 {
		o.metrics.RecordSearchFailed(time.Since(start).Seconds())
		o.logger.Info().
			Str("query", req.Query).
			Int("source_errors", len(meta.Errors)).
			Msg("Search produced no results")
		return resp, domain.ErrNoResults
	}

	o.persist(papers)
	o.metrics.RecordSearchCompleted(len(papers), time.Since(start).Seconds())
	o.logger.Info().
		Str("query", req.Query).
		Int("papers", len(papers)).
		Int("raw_results", len(merged)).
		Int("merged", stats.Merged).
		Int("cache_hits", meta.CacheHits).
		Int64("elapsed_ms", meta.ElapsedMS).
		Msg("Search completed")
	return resp, nil
}

// selectSources resolves which adapters participate in the primary fan-out,
// honoring the request's source list and the internal/external toggles.
// Explicitly requested sources that are registered but disabled surface as
// metadata errors instead of being silently skipped.
func (o *Orchestrator) selectSources(req *domain.SearchRequest, meta *domain.SearchMetadata) []sources.SourceAdapter {
	requested := domain.FilterSourceTypes(req.Sources)
	explicit := len(requested) > 0
	if !explicit {
		requested = domain.AllSourceTypes
	}

	allowed := make([]domain.SourceType, 0, len(requested))
	for _, st := range requested {
		if !o.sourceAllowed(st, req) {
			continue
		}
		if explicit {
			if adapter := o.registry.Get(st); adapter != nil && !adapter.IsEnabled() {
				meta.Errors = append(meta.Errors, domain.SourceError{
					Source:  st,
					Message: domain.ErrSourceDisabled.Error(),
				})
				continue
			}
		}
		allowed = append(allowed, st)
	}
	return o.registry.Enabled(allowed)
}

// sourceAllowed applies the useInternalSearch/useExternalApis toggles.
func (o *Orchestrator) sourceAllowed(st domain.SourceType, req *domain.SearchRequest) bool {
	if st.IsExternal() {
		return req.UseExternalAPIs
	}
	return req.UseInternalSearch
}

// allotment is the per-source time budget: a fraction of the global
// deadline, halved in fast mode.
func (o *Orchestrator) allotment(req *domain.SearchRequest) time.Duration {
	budget := time.Duration(float64(req.Timeout) * o.config.SourceBudgetFraction)
	if req.FastMode {
		budget /= 2
	}
	return budget
}

// fanOut launches one task per adapter, waits for all of them (each bounded
// by its own allotment), and merges their results. Outcomes are folded into
// the metadata in adapter order so the metadata is deterministic even
// though task completion order is not.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	req *domain.SearchRequest,
	adapters []sources.SourceAdapter,
	meta *domain.SearchMetadata,
	tried map[domain.SourceType]bool,
) []domain.RawResult {
	if len(adapters) == 0 {
		return nil
	}

	allotment := o.allotment(req)
	outcomes := make(chan sourceOutcome, len(adapters))
	var wg sync.WaitGroup
	for _, adapter := range adapters {
		tried[adapter.SourceType()] = true
		wg.Add(1)
		go func(adapter sources.SourceAdapter) {
			defer wg.Done()
			outcomes <- o.querySource(ctx, adapter, req, allotment)
		}(adapter)
	}
	wg.Wait()
	close(outcomes)

	bySource := make(map[domain.SourceType]sourceOutcome, len(adapters))
	for outcome := range outcomes {
		bySource[outcome.source] = outcome
	}

	var merged []domain.RawResult
	for _, adapter := range adapters {
		merged = o.recordOutcome(bySource[adapter.SourceType()], merged, meta)
	}
	return merged
}

// runFallbackChain sequentially tries untried fallback sources while the
// merged set is below MinResults and time remains. Sequential on purpose:
// fallback sources are rate-limited or lower-quality and should not be hit
// unless needed.
func (o *Orchestrator) runFallbackChain(
	ctx context.Context,
	req *domain.SearchRequest,
	merged []domain.RawResult,
	meta *domain.SearchMetadata,
	tried map[domain.SourceType]bool,
) []domain.RawResult {
	if len(merged) >= req.MinResults {
		return merged
	}

	allotment := o.allotment(req)
	for _, st := range o.config.FallbackChain {
		if len(merged) >= req.MinResults || ctx.Err() != nil {
			break
		}
		if tried[st] || !o.sourceAllowed(st, req) {
			continue
		}
		adapter := o.registry.Get(st)
		if adapter == nil || !adapter.IsEnabled() {
			continue
		}

		tried[st] = true
		o.metrics.RecordFallbackInvocation(string(st))
		o.logger.Debug().
			Str("source", string(st)).
			Int("merged", len(merged)).
			Int("min_results", req.MinResults).
			Msg("Trying fallback source")
		merged = o.recordOutcome(o.querySource(ctx, adapter, req, allotment), merged, meta)
	}
	return merged
}

// querySource runs one source lookup: cache first, then the adapter under
// its allotment. Successful network fetches are written back to the cache;
// failures are not.
func (o *Orchestrator) querySource(
	ctx context.Context,
	adapter sources.SourceAdapter,
	req *domain.SearchRequest,
	allotment time.Duration,
) sourceOutcome {
	st := adapter.SourceType()
	opts := sources.SearchOptions{
		Limit:    req.MaxResults,
		FromYear: req.FromYear,
		FastMode: req.FastMode,
	}

	key := sources.CacheKey(st, req.Query, opts.Limit, opts.FromYear)
	if results, ok := o.cache.Get(key); ok {
		o.metrics.RecordCacheHit(string(st))
		return sourceOutcome{source: st, results: results, cacheHit: true}
	}
	o.metrics.RecordCacheMiss(string(st))

	o.metrics.RecordSourceSearchStarted(string(st))
	srcCtx, cancel := context.WithTimeout(ctx, allotment)
	defer cancel()

	start := time.Now()
	results, err := adapter.Search(srcCtx, req.Query, opts)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		o.metrics.RecordSourceSearchFailed(string(st), elapsed)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", allotment)
		}
		srcLogger := observability.WithSearchContext(o.logger, req.Query, string(st))
		srcLogger.Warn().
			Err(err).
			Msg("Source search failed")
		return sourceOutcome{source: st, err: err}
	}

	o.cache.Put(key, results)
	o.metrics.RecordSourceSearchCompleted(string(st), len(results), elapsed)
	o.metrics.RecordPapersDiscovered(string(st), len(results))
	return sourceOutcome{source: st, results: results}
}

// recordOutcome folds one source outcome into the merged set and metadata.
func (o *Orchestrator) recordOutcome(
	outcome sourceOutcome,
	merged []domain.RawResult,
	meta *domain.SearchMetadata,
) []domain.RawResult {
	meta.StrategiesUsed = append(meta.StrategiesUsed, outcome.source)
	if outcome.cacheHit {
		meta.CacheHits++
	}
	if outcome.err != nil {
		meta.Errors = append(meta.Errors, domain.SourceError{
			Source:  outcome.source,
			Message: outcome.err.Error(),
		})
		return merged
	}
	meta.PerSourceCounts[outcome.source] = len(outcome.results)
	return append(merged, outcome.results...)
}

// persist writes the canonical papers to the store in the background.
// Discovery responses never wait on, or fail because of, the database.
func (o *Orchestrator) persist(papers []domain.CanonicalPaper) {
	if o.store == nil || len(papers) == 0 {
		return
	}

	toStore := make([]*domain.CanonicalPaper, len(papers))
	for i := range papers {
		p := papers[i]
		toStore[i] = &p
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if _, err := o.store.BulkUpsert(ctx, toStore); err != nil {
			o.logger.Error().Err(err).
				Int("papers", len(toStore)).
				Msg("Failed to persist discovered papers")
		}
	}()
}
