// Package main provides the entry point for the paper discovery service HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sadiq-codes/paper-discovery-service/internal/config"
	"github.com/sadiq-codes/paper-discovery-service/internal/database"
	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/embeddings"
	"github.com/sadiq-codes/paper-discovery-service/internal/observability"
	"github.com/sadiq-codes/paper-discovery-service/internal/region"
	"github.com/sadiq-codes/paper-discovery-service/internal/repository"
	"github.com/sadiq-codes/paper-discovery-service/internal/search"
	httpserver "github.com/sadiq-codes/paper-discovery-service/internal/server/http"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources/arxiv"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources/core"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources/crossref"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources/internalstore"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources/openalex"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources/semanticscholar"
)

const metricsNamespace = "paperdisc"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-discovery-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	paperRepo := repository.NewPgPaperRepository(db)
	metrics := observability.NewMetrics(metricsNamespace)

	// Embedding client for semantic ranking. When disabled the ranker
	// falls back to keyword overlap.
	var embedder embeddings.Embedder
	if cfg.Embedding.Enabled {
		embedder = embeddings.NewClient(embeddings.Config{
			APIKey:       cfg.Embedding.APIKey,
			BaseURL:      cfg.Embedding.BaseURL,
			Model:        cfg.Embedding.Model,
			Timeout:      cfg.Embedding.Timeout,
			MaxBatchSize: cfg.Embedding.MaxBatchSize,
			Metrics:      metrics,
		})
		logger.Info().Str("model", cfg.Embedding.Model).Msg("semantic ranking enabled")
	}

	registry := buildSourceRegistry(cfg, paperRepo, metrics)
	cache := sources.NewResultCache(cfg.Search.CacheTTL, nil)

	ranker := search.NewRanker(embedder, logger)
	orchestrator := search.NewOrchestrator(
		search.Config{
			MinResults:           cfg.Search.MinResults,
			FallbackChain:        domain.FilterSourceTypes(cfg.Search.FallbackChain),
			SourceBudgetFraction: cfg.Search.SourceBudgetFraction,
			RegionBoostFactor:    cfg.Search.RegionBoostFactor,
		},
		registry,
		cache,
		ranker,
		region.NewHeuristicDetector(),
		paperRepo,
		metrics,
		logger,
	)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}
	httpSrv := httpserver.NewServer(httpCfg, orchestrator, paperRepo, db, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Msg("paper-discovery-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-discovery-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("paper-discovery-service shutdown complete")
	return nil
}

// buildSourceRegistry constructs an adapter for every configured source and
// registers it. Adapters report their own enablement; disabled sources stay
// registered so explicit requests for them fail cleanly instead of panicking.
func buildSourceRegistry(cfg *config.Config, paperRepo repository.PaperRepository, metrics *observability.Metrics) *sources.Registry {
	registry := sources.NewRegistry()

	registry.Register(openalex.New(openalex.Config{
		BaseURL:    cfg.Sources.OpenAlex.BaseURL,
		Email:      cfg.Sources.ContactEmail,
		Timeout:    cfg.Sources.OpenAlex.Timeout,
		RateLimit:  cfg.Sources.OpenAlex.RateLimit,
		MaxResults: cfg.Sources.OpenAlex.MaxResults,
		Enabled:    cfg.Sources.OpenAlex.Enabled,
		Metrics:    metrics,
	}))

	registry.Register(crossref.New(crossref.Config{
		BaseURL:    cfg.Sources.Crossref.BaseURL,
		Email:      cfg.Sources.ContactEmail,
		Timeout:    cfg.Sources.Crossref.Timeout,
		RateLimit:  cfg.Sources.Crossref.RateLimit,
		MaxResults: cfg.Sources.Crossref.MaxResults,
		Enabled:    cfg.Sources.Crossref.Enabled,
		Metrics:    metrics,
	}))

	registry.Register(semanticscholar.New(semanticscholar.Config{
		BaseURL:    cfg.Sources.SemanticScholar.BaseURL,
		APIKey:     cfg.Sources.SemanticScholar.APIKey,
		Timeout:    cfg.Sources.SemanticScholar.Timeout,
		RateLimit:  cfg.Sources.SemanticScholar.RateLimit,
		MaxResults: cfg.Sources.SemanticScholar.MaxResults,
		Enabled:    cfg.Sources.SemanticScholar.Enabled,
		Metrics:    metrics,
	}))

	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    cfg.Sources.ArXiv.BaseURL,
		Timeout:    cfg.Sources.ArXiv.Timeout,
		RateLimit:  cfg.Sources.ArXiv.RateLimit,
		MaxResults: cfg.Sources.ArXiv.MaxResults,
		Enabled:    cfg.Sources.ArXiv.Enabled,
		Metrics:    metrics,
	}))

	registry.Register(core.New(core.Config{
		BaseURL:    cfg.Sources.CORE.BaseURL,
		APIKey:     cfg.Sources.CORE.APIKey,
		Timeout:    cfg.Sources.CORE.Timeout,
		RateLimit:  cfg.Sources.CORE.RateLimit,
		MaxResults: cfg.Sources.CORE.MaxResults,
		Enabled:    cfg.Sources.CORE.Enabled,
		Metrics:    metrics,
	}))

	registry.Register(internalstore.New(internalstore.Config{
		MaxResults: cfg.Sources.Internal.MaxResults,
		Enabled:    cfg.Sources.Internal.Enabled,
	}, paperRepo))

	return registry
}
