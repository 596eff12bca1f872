package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/observability"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// Crossref's polite pool asks clients to stay under 50 req/sec; we
	// default far below that.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search request.
	DefaultMaxResults = 25

	// maxRows is the rows ceiling enforced by the Crossref API.
	maxRows = 1000
)

// jatsTagRegex matches the JATS XML tags Crossref embeds in abstracts.
var jatsTagRegex = regexp.MustCompile(`</?jats:[^>]+>|</?[a-zA-Z][^>]*>`)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	// Defaults to https://api.crossref.org
	BaseURL string

	// Email is the contact email for the polite pool. Requests carrying a
	// mailto parameter are routed to better-provisioned servers.
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to 5 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to 5.
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

// Client implements the sources.SourceAdapter interface for Crossref.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements SourceAdapter interface.
var _ sources.SourceAdapter = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "PaperDiscoveryService/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
		Source:    string(domain.SourceTypeCrossref),
		Metrics:   cfg.Metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries Crossref for works matching the given query.
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
			domain.SourceTypeCrossref,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, domain.NewParseError(domain.SourceTypeCrossref, err)
	}

	results := make([]domain.RawResult, 0, len(searchResp.Message.Items))
	for i := range searchResp.Message.Items {
		if r, ok := workToResult(&searchResp.Message.Items[i]); ok {
			results = append(results, r)
		}
	}

	return results, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return "Crossref"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the works search URL with query parameters.
func (c *Client) buildSearchURL(query string, opts sources.SearchOptions) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	values := url.Values{}
	values.Set("query", query)

	if opts.FromYear > 0 {
		values.Set("filter", fmt.Sprintf("from-pub-date:%d-01-01", opts.FromYear))
	}

	limit := opts.EffectiveLimit(c.config.MaxResults)
	if limit > maxRows {
		limit = maxRows
	}
	values.Set("rows", strconv.Itoa(limit))

	// Relevance ordering mirrors what callers expect from a text search.
	values.Set("sort", "relevance")

	if c.config.Email != "" {
		values.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = values.Encode()
	return baseURL.String(), nil
}

// workToResult converts a Crossref work to a domain raw result.
func workToResult(work *Work) (domain.RawResult, bool) {
	var title string
	if len(work.Title) > 0 {
		title = work.Title[0]
	}

	authors := make([]domain.Author, 0, len(work.Author))
	for _, a := range work.Author {
		authors = append(authors, domain.Author{Name: authorName(a)})
	}

	var venue string
	if len(work.ContainerTitle) > 0 {
		venue = work.ContainerTitle[0]
	}

	result := domain.RawResult{
		Title:         title,
		Authors:       authors,
		Year:          workYear(work),
		Abstract:      stripJATS(work.Abstract),
		Venue:         venue,
		DOI:           domain.NormalizeDOI(work.DOI),
		URL:           work.URL,
		CitationCount: work.IsReferencedBy,
		Source:        domain.SourceTypeCrossref,
	}
	if !result.Finalize() {
		return domain.RawResult{}, false
	}
	return result, true
}

// authorName assembles a display name from Crossref's split name fields.
// Organization contributors carry a single name field instead.
func authorName(a Author) string {
	if a.Name != "" {
		return a.Name
	}
	return strings.TrimSpace(a.Given + " " + a.Family)
}

// workYear picks a publication year from the work's partial-date fields in
// preference order: published, published-print, published-online, issued.
func workYear(work *Work) int {
	for _, d := range []*DateParts{work.Published, work.PublishedPrint, work.PublishedOnline, work.Issued} {
		if y := d.Year(); y > 0 {
			return y
		}
	}
	return 0
}

// stripJATS removes the JATS XML markup Crossref embeds in abstract fields.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	stripped := jatsTagRegex.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(stripped), " ")
}
