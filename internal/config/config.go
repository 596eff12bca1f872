// Package config provides configuration management for the paper discovery service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the paper discovery service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains search orchestration policy settings.
	Search SearchConfig `mapstructure:"search"`
	// Embedding contains embedding client settings for semantic ranking.
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	// Sources contains per-source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from PAPERDISC_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 25).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 5).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// SearchConfig holds search orchestration policy settings.
type SearchConfig struct {
	// DefaultTimeout is the global search deadline when the request does not
	// specify one.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// MinResults is the canonical-paper floor below which the fallback chain
	// is consulted.
	MinResults int `mapstructure:"min_results"`
	// FallbackChain lists the source names tried sequentially when the
	// primary fan-out comes back short.
	FallbackChain []string `mapstructure:"fallback_chain"`
	// SourceBudgetFraction is the share of the global deadline granted to
	// each concurrent source call (0.0-1.0).
	SourceBudgetFraction float64 `mapstructure:"source_budget_fraction"`
	// CacheTTL is how long per-source results stay servable from cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// RegionBoostFactor multiplies the combined score of papers matching the
	// requested local region.
	RegionBoostFactor float64 `mapstructure:"region_boost_factor"`
}

// EmbeddingConfig holds embedding client settings.
type EmbeddingConfig struct {
	// Enabled enables semantic scoring via the embedding API. When disabled
	// the ranker redistributes the semantic weight to keyword overlap.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the embedding API key (loaded from PAPERDISC_EMBEDDING_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the embeddings API base URL (OpenAI-compatible).
	BaseURL string `mapstructure:"base_url"`
	// Model is the embedding model name.
	Model string `mapstructure:"model"`
	// Timeout is the timeout for embedding API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxBatchSize is the maximum texts per embedding request.
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// SourcesConfig holds configuration for all bibliographic sources.
type SourcesConfig struct {
	// OpenAlex contains OpenAlex API settings.
	OpenAlex SourceConfig `mapstructure:"openalex"`
	// Crossref contains Crossref API settings.
	Crossref SourceConfig `mapstructure:"crossref"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	// ArXiv contains arXiv API settings.
	ArXiv SourceConfig `mapstructure:"arxiv"`
	// CORE contains CORE API settings.
	CORE SourceConfig `mapstructure:"core"`
	// Internal contains settings for the internal Postgres-backed source.
	Internal SourceConfig `mapstructure:"internal"`
	// ContactEmail is sent to polite-pool APIs (OpenAlex, Crossref).
	ContactEmail string `mapstructure:"contact_email"`
}

// SourceConfig holds configuration for a single bibliographic source.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variables, e.g.
	// PAPERDISC_SOURCES_CORE_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the default maximum results per query.
	MaxResults int `mapstructure:"max_results"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAPERDISC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-discovery-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv("PAPERDISC_DATABASE_PASSWORD")
	cfg.Embedding.APIKey = os.Getenv("PAPERDISC_EMBEDDING_API_KEY")

	cfg.Sources.SemanticScholar.APIKey = os.Getenv("PAPERDISC_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.CORE.APIKey = os.Getenv("PAPERDISC_SOURCES_CORE_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paperdisc")
	v.SetDefault("database.name", "paper_discovery_service")
	// Default to "require" for production security. Use PAPERDISC_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Search policy defaults
	v.SetDefault("search.default_timeout", "30s")
	v.SetDefault("search.min_results", 3)
	v.SetDefault("search.fallback_chain", []string{"core", "internal"})
	v.SetDefault("search.source_budget_fraction", 0.8)
	v.SetDefault("search.cache_ttl", "5m")
	v.SetDefault("search.region_boost_factor", 1.1)

	// Embedding defaults
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", "30s")
	v.SetDefault("embedding.max_batch_size", 64)

	// Source defaults - OpenAlex
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.timeout", "30s")
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.max_results", 25)

	// Source defaults - Crossref
	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.timeout", "30s")
	v.SetDefault("sources.crossref.rate_limit", 5.0)
	v.SetDefault("sources.crossref.max_results", 25)

	// Source defaults - Semantic Scholar
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "30s")
	v.SetDefault("sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("sources.semantic_scholar.max_results", 25)

	// Source defaults - arXiv
	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("sources.arxiv.timeout", "30s")
	v.SetDefault("sources.arxiv.rate_limit", 0.33) // arXiv asks for one request per three seconds
	v.SetDefault("sources.arxiv.max_results", 25)

	// Source defaults - CORE (disabled by default, requires API key)
	v.SetDefault("sources.core.enabled", false)
	v.SetDefault("sources.core.base_url", "https://api.core.ac.uk/v3")
	v.SetDefault("sources.core.timeout", "30s")
	v.SetDefault("sources.core.rate_limit", 1.0)
	v.SetDefault("sources.core.max_results", 25)

	// Source defaults - internal store
	v.SetDefault("sources.internal.enabled", true)
	v.SetDefault("sources.internal.timeout", "10s")
	v.SetDefault("sources.internal.max_results", 25)

	v.SetDefault("sources.contact_email", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate search policy
	if c.Search.MinResults < 0 {
		return fmt.Errorf("search min_results cannot be negative")
	}
	if c.Search.SourceBudgetFraction <= 0 || c.Search.SourceBudgetFraction > 1 {
		return fmt.Errorf("search source_budget_fraction must be in (0, 1], got %f", c.Search.SourceBudgetFraction)
	}
	if c.Search.RegionBoostFactor < 1 {
		return fmt.Errorf("search region_boost_factor must be >= 1, got %f", c.Search.RegionBoostFactor)
	}
	if types := domain.FilterSourceTypes(c.Search.FallbackChain); len(types) != len(c.Search.FallbackChain) {
		return fmt.Errorf("search fallback_chain contains unknown source names: %v", c.Search.FallbackChain)
	}

	// Validate embedding config
	if c.Embedding.Enabled && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding is enabled but PAPERDISC_EMBEDDING_API_KEY is not set")
	}
	if c.Embedding.MaxBatchSize <= 0 {
		return fmt.Errorf("embedding max_batch_size must be positive")
	}

	return nil
}
