package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sadiq-codes/paper-discovery-service/internal/observability"
)

// Default values for the OpenAI-compatible embeddings client.
const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultTimeout    = 30 * time.Second
	defaultBatchSize  = 64
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
)

// embeddingRequest represents the embeddings API request body.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse represents the embeddings API response body.
type embeddingResponse struct {
	Data  []embeddingDatum `json:"data"`
	Model string           `json:"model"`
	Usage embeddingUsage   `json:"usage"`
}

// embeddingDatum carries a single embedding vector and its input index.
type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// embeddingUsage contains token usage information.
type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error apiErrorDetail `json:"error"`
}

// apiErrorDetail contains error details from the API.
type apiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// APIError represents an error returned by the embeddings API.
type APIError struct {
	// StatusCode is the HTTP status code returned by the API.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Type is the error type classification from the API.
	Type string
	// Code is the provider-specific error code (if available).
	Code string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("embeddings: API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("embeddings: API error (status %d): %s", e.StatusCode, e.Message)
}

// IsTransient returns true if the error may succeed on retry: rate limiting
// (429) and server errors (5xx).
func (e *APIError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds the parameters needed to create an embeddings client.
type Config struct {
	// APIKey is the API key sent as a Bearer token.
	APIKey string
	// BaseURL is the API base URL (empty means the OpenAI default).
	BaseURL string
	// Model is the embedding model identifier.
	Model string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxBatchSize is the maximum number of texts per API request; longer
	// inputs are split into sequential batches.
	MaxBatchSize int
	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries int
	// Metrics receives per-request counters and latencies. Optional.
	Metrics *observability.Metrics
}

// Client is an OpenAI-compatible embeddings API client.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	metrics    *observability.Metrics
}

var _ Embedder = (*Client)(nil)

// NewClient creates a new embeddings client.
//
// Transient errors (5xx and 429) are retried with linear backoff; other
// failures are returned immediately.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	batchSize := cfg.MaxBatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		retryDelay: defaultRetryDelay,
		metrics:    cfg.Metrics,
	}
}

// Model returns the embedding model identifier being used.
func (c *Client) Model() string {
	return c.model
}

// Embed returns one vector per input text, in input order. Inputs longer
// than the configured batch size are split into sequential API requests.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embedBatch embeds a single batch, retrying transient errors.
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{
		Model: c.model,
		Input: texts,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("embeddings: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		start := time.Now()
		vectors, err := c.doRequest(ctx, req)
		if err == nil {
			if c.metrics != nil {
				c.metrics.RecordEmbeddingRequest(c.model, len(texts), time.Since(start).Seconds())
			}
			return vectors, nil
		}
		if c.metrics != nil {
			c.metrics.RecordEmbeddingRequestFailed(c.model, errorType(err))
		}

		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embeddings: exhausted %d retries: %w", c.maxRetries, lastErr)
}

// doRequest performs a single API request to the embeddings endpoint.
func (c *Client) doRequest(ctx context.Context, embReq embeddingRequest) ([][]float32, error) {
	body, err := json.Marshal(embReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings: failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embeddings: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("embeddings: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("embeddings: failed to unmarshal response: %w", err)
	}

	if len(embResp.Data) != len(embReq.Input) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(embResp.Data), len(embReq.Input))
	}

	// The API documents ordered output but indexes each datum; sort to be safe.
	sort.Slice(embResp.Data, func(i, j int) bool {
		return embResp.Data[i].Index < embResp.Data[j].Index
	})

	vectors := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// isTransient reports whether the error is a retryable API error.
func isTransient(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.IsTransient()
}

// errorType classifies an embedding failure for the metrics label.
func errorType(err error) string {
	apiErr, ok := err.(*APIError)
	switch {
	case !ok:
		return "transport"
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case apiErr.StatusCode >= 500:
		return "server_error"
	default:
		return "api_error"
	}
}

// parseAPIError parses an API error from the response status code and body.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp apiErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
