package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/observability"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources"
)

const (
	// DefaultBaseURL is the default CORE v3 API base URL.
	DefaultBaseURL = "https://api.core.ac.uk/v3"

	// DefaultRateLimit is the default rate limit for requests per second.
	// Registered keys get 10 requests per 10 seconds on the free tier.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search request.
	DefaultMaxResults = 25

	// sourceName is the human-readable name for this source.
	sourceName = "CORE"
)

// Config holds configuration for the CORE client.
type Config struct {
	// BaseURL is the CORE API base URL.
	// Defaults to https://api.core.ac.uk/v3
	BaseURL string

	// APIKey is the CORE API key. Required; the adapter reports itself
	// disabled without one.
	APIKey string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to 1 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to 2.
	BurstSize int

	// MaxResults is the default maximum results per search request.
	// Defaults to 25.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool

	// Metrics receives outbound request metrics. Optional.
	Metrics *observability.Metrics
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the sources.SourceAdapter interface for CORE.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements SourceAdapter interface.
var _ sources.SourceAdapter = (*Client)(nil)

// New creates a new CORE client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		BurstSize:    cfg.BurstSize,
		APIKey:       "Bearer " + cfg.APIKey,
		APIKeyHeader: "Authorization",
		Source:       string(domain.SourceTypeCORE),
		Metrics:      cfg.Metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new CORE client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries CORE for works matching the given query.
func (c *Client) Search(ctx context.Context, query string, opts sources.SearchOptions) ([]domain.RawResult, error) {
	searchURL, err := c.buildSearchURL(query, opts)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			domain.SourceTypeCORE,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, domain.NewParseError(domain.SourceTypeCORE, err)
	}

	results := make([]domain.RawResult, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if r, ok := workToResult(&searchResp.Results[i]); ok {
			results = append(results, r)
		}
	}

	return results, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCORE
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled. A missing API key
// disables the source regardless of configuration.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

// buildSearchURL constructs the search works URL with query parameters.
func (c *Client) buildSearchURL(query string, opts sources.SearchOptions) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("search", "works")

	q := searchURL.Query()

	// CORE supports field-scoped query syntax; a yearPublished clause is the
	// closest equivalent to a from-year filter.
	if opts.FromYear > 0 {
		q.Set("q", fmt.Sprintf("%s AND yearPublished>=%d", query, opts.FromYear))
	} else {
		q.Set("q", query)
	}
	q.Set("limit", strconv.Itoa(opts.EffectiveLimit(c.config.MaxResults)))

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// workToResult converts a CORE work to a domain raw result.
func workToResult(work *Work) (domain.RawResult, bool) {
	authors := make([]domain.Author, 0, len(work.Authors))
	for _, a := range work.Authors {
		authors = append(authors, domain.Author{Name: a.Name})
	}

	pageURL := work.DownloadURL
	if pageURL == "" {
		for _, link := range work.Links {
			if link.Type == "display" {
				pageURL = link.URL
				break
			}
		}
	}

	result := domain.RawResult{
		Title:         work.Title,
		Authors:       authors,
		Year:          workYear(work),
		Abstract:      work.Abstract,
		Venue:         work.Publisher,
		DOI:           domain.NormalizeDOI(work.DOI),
		URL:           pageURL,
		CitationCount: work.CitationCount,
		Source:        domain.SourceTypeCORE,
	}
	if !result.Finalize() {
		return domain.RawResult{}, false
	}
	return result, true
}

// workYear extracts the publication year, falling back to the date string.
func workYear(work *Work) int {
	if work.YearPublished > 0 {
		return work.YearPublished
	}
	return domain.YearFromDate(work.PublishedDate)
}
