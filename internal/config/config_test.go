package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars removes any PAPERDISC env vars so tests start clean.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "PAPERDISC_") {
			key := strings.SplitN(entry, "=", 2)[0]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a fully valid configuration for Validate tests.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "paperdisc",
			Name:     "paper_discovery_service",
			SSLMode:  SSLModeDisable,
			MaxConns: 25,
			MinConns: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Search: SearchConfig{
			DefaultTimeout:       30 * time.Second,
			MinResults:           3,
			FallbackChain:        []string{"core", "internal"},
			SourceBudgetFraction: 0.8,
			CacheTTL:             5 * time.Minute,
			RegionBoostFactor:    1.1,
		},
		Embedding: EmbeddingConfig{
			Enabled:      false,
			MaxBatchSize: 64,
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "paperdisc", cfg.Database.User)
	assert.Equal(t, "paper_discovery_service", cfg.Database.Name)
	assert.Equal(t, SSLModeRequire, cfg.Database.SSLMode)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, int32(5), cfg.Database.MinConns)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	assert.Equal(t, 30*time.Second, cfg.Search.DefaultTimeout)
	assert.Equal(t, 3, cfg.Search.MinResults)
	assert.Equal(t, []string{"core", "internal"}, cfg.Search.FallbackChain)
	assert.Equal(t, 0.8, cfg.Search.SourceBudgetFraction)
	assert.Equal(t, 5*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, 1.1, cfg.Search.RegionBoostFactor)

	assert.False(t, cfg.Embedding.Enabled)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 64, cfg.Embedding.MaxBatchSize)

	assert.True(t, cfg.Sources.OpenAlex.Enabled)
	assert.True(t, cfg.Sources.Crossref.Enabled)
	assert.True(t, cfg.Sources.SemanticScholar.Enabled)
	assert.True(t, cfg.Sources.ArXiv.Enabled)
	assert.False(t, cfg.Sources.CORE.Enabled)
	assert.True(t, cfg.Sources.Internal.Enabled)
	assert.Equal(t, "https://api.openalex.org", cfg.Sources.OpenAlex.BaseURL)
	assert.Equal(t, 0.33, cfg.Sources.ArXiv.RateLimit)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PAPERDISC_SERVER_HTTP_PORT", "8888")
	t.Setenv("PAPERDISC_DATABASE_HOST", "db.example.com")
	t.Setenv("PAPERDISC_DATABASE_PORT", "5433")
	t.Setenv("PAPERDISC_DATABASE_USER", "testuser")
	t.Setenv("PAPERDISC_DATABASE_PASSWORD", "testpass")
	t.Setenv("PAPERDISC_DATABASE_NAME", "testdb")
	t.Setenv("PAPERDISC_DATABASE_SSL_MODE", "disable")
	t.Setenv("PAPERDISC_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERDISC_SEARCH_MIN_RESULTS", "5")
	t.Setenv("PAPERDISC_SOURCES_CONTACT_EMAIL", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "testuser", cfg.Database.User)
	assert.Equal(t, "testpass", cfg.Database.Password)
	assert.Equal(t, "testdb", cfg.Database.Name)
	assert.Equal(t, SSLModeDisable, cfg.Database.SSLMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Search.MinResults)
	assert.Equal(t, "ops@example.com", cfg.Sources.ContactEmail)
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PAPERDISC_SOURCES_CORE_API_KEY", "core-secret")
	t.Setenv("PAPERDISC_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "s2-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "core-secret", cfg.Sources.CORE.APIKey)
	assert.Equal(t, "s2-secret", cfg.Sources.SemanticScholar.APIKey)
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port negative",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = -1
			},
			expectedErr: "invalid HTTP port: -1",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_DatabaseConfig(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "empty database host",
			modifyFunc: func(c *Config) {
				c.Database.Host = ""
			},
			expectedErr: "database host is required",
		},
		{
			name: "empty database name",
			modifyFunc: func(c *Config) {
				c.Database.Name = ""
			},
			expectedErr: "database name is required",
		},
		{
			name: "max_conns less than min_conns",
			modifyFunc: func(c *Config) {
				c.Database.MaxConns = 5
				c.Database.MinConns = 10
			},
			expectedErr: "max_conns (5) must be >= min_conns (10)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			assert.NoError(t, cfg.Validate())
		})
	}

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "invalid"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level: invalid")
	})
}

func TestValidate_SearchPolicy(t *testing.T) {
	t.Run("negative min_results", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.MinResults = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min_results cannot be negative")
	})

	t.Run("budget fraction above one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.SourceBudgetFraction = 1.5
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source_budget_fraction")
	})

	t.Run("zero budget fraction", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.SourceBudgetFraction = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source_budget_fraction")
	})

	t.Run("boost factor below one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.RegionBoostFactor = 0.9
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "region_boost_factor")
	})

	t.Run("unknown fallback source", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.FallbackChain = []string{"core", "scopus"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fallback_chain")
	})
}

func TestValidate_Embedding(t *testing.T) {
	t.Run("enabled without api key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Embedding.Enabled = true
		cfg.Embedding.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PAPERDISC_EMBEDDING_API_KEY")
	})

	t.Run("enabled with api key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Embedding.Enabled = true
		cfg.Embedding.APIKey = "sk-test"
		assert.NoError(t, cfg.Validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:           "db.internal",
		Port:           5432,
		User:           "paperdisc",
		Password:       "p@ss/word",
		Name:           "papers",
		SSLMode:        SSLModeRequire,
		ConnectTimeout: 10 * time.Second,
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "p%40ss%2Fword")
	assert.Contains(t, dsn, "db.internal:5432/papers")
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, dsn, "connect_timeout=10")
}

func TestServerConfig_HTTPAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddress())
}
