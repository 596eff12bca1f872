package crossref

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadiq-codes/paper-discovery-service/internal/domain"
	"github.com/sadiq-codes/paper-discovery-service/internal/sources"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL:    serverURL,
		Email:      "test@example.com",
		Timeout:    5 * time.Second,
		RateLimit:  100,
		BurstSize:  100,
		MaxResults: 25,
		Enabled:    true,
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		UserAgent:  "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// sampleSearchResponse returns a sample Crossref works response for testing.
func sampleSearchResponse() SearchResponse {
	return SearchResponse{
		Status: "ok",
		Message: Message{
			TotalResults: 2,
			Items: []Work{
				{
					DOI:   "10.1038/NATURE14539",
					Title: []string{"Deep learning"},
					Author: []Author{
						{Given: "Yann", Family: "LeCun"},
						{Given: "Yoshua", Family: "Bengio"},
						{Given: "Geoffrey", Family: "Hinton"},
					},
					ContainerTitle: []string{"Nature"},
					Abstract:       "<jats:p>Deep learning allows computational models to learn representations.</jats:p>",
					URL:            "https://doi.org/10.1038/nature14539",
					Type:           "journal-article",
					IsReferencedBy: 45000,
					Published:      &DateParts{DateParts: [][]int{{2015, 5, 27}}},
				},
				{
					DOI:            "10.5555/undated",
					Title:          []string{"An Undated Technical Report"},
					Author:         []Author{{Name: "OpenAI"}},
					URL:            "https://doi.org/10.5555/undated",
					Type:           "report",
					IsReferencedBy: 3,
					Issued:         &DateParts{DateParts: [][]int{{}}},
				},
			},
		},
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := New(Config{Enabled: true})

	require.NotNil(t, client)
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
	assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
	assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
}

func TestClient_Identity(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, domain.SourceTypeCrossref, client.SourceType())
	assert.Equal(t, "Crossref", client.Name())
	assert.True(t, client.IsEnabled())
	assert.False(t, New(Config{}).IsEnabled())
}

func TestClient_Search(t *testing.T) {
	t.Run("successful search", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			assert.Equal(t, "deep learning", r.URL.Query().Get("query"))
			assert.Equal(t, "25", r.URL.Query().Get("rows"))
			assert.Equal(t, "relevance", r.URL.Query().Get("sort"))
			assert.Equal(t, "test@example.com", r.URL.Query().Get("mailto"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sampleSearchResponse())
		}))
		defer server.Close()

		client := newTestClient(server.URL)

		results, err := client.Search(context.Background(), "deep learning", sources.SearchOptions{Limit: 25})
		require.NoError(t, err)
		require.Len(t, results, 2)

		first := results[0]
		assert.Equal(t, "Deep learning", first.Title)
		assert.Equal(t, "10.1038/nature14539", first.DOI)
		assert.Equal(t, 2015, first.Year)
		assert.Equal(t, 45000, first.CitationCount)
		assert.Equal(t, "Nature", first.Venue)
		assert.Equal(t, domain.SourceTypeCrossref, first.Source)
		require.Len(t, first.Authors, 3)
		assert.Equal(t, "Yann LeCun", first.Authors[0].Name)
		assert.Equal(t, "Deep learning allows computational models to learn representations.", first.Abstract)
		assert.NotEmpty(t, first.CanonicalID)

		second := results[1]
		assert.Equal(t, "OpenAI", second.Authors[0].Name)
		assert.Zero(t, second.Year)
	})

	t.Run("from year becomes a pub-date filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "from-pub-date:2019-01-01", r.URL.Query().Get("filter"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(SearchResponse{Status: "ok"})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), "graphene", sources.SearchOptions{FromYear: 2019})
		require.NoError(t, err)
	})

	t.Run("untitled works are dropped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := sampleSearchResponse()
			resp.Message.Items[0].Title = nil
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		results, err := client.Search(context.Background(), "deep learning", sources.SearchOptions{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "An Undated Technical Report", results[0].Title)
	})

	t.Run("server error surfaces as external API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad filter"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), "deep learning", sources.SearchOptions{})
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("malformed body surfaces as parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), "deep learning", sources.SearchOptions{})
		require.Error(t, err)

		var parseErr *domain.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})
}

func TestStripJATS(t *testing.T) {
	tests := []struct {
		name     string
		abstract string
		want     string
	}{
		{name: "empty", abstract: "", want: ""},
		{
			name:     "jats paragraph",
			abstract: "<jats:p>Hello <jats:italic>world</jats:italic>.</jats:p>",
			want:     "Hello world .",
		},
		{name: "plain text untouched", abstract: "No markup here", want: "No markup here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripJATS(tt.abstract))
		})
	}
}

func TestDateParts_Year(t *testing.T) {
	assert.Zero(t, (*DateParts)(nil).Year())
	assert.Zero(t, (&DateParts{}).Year())
	assert.Zero(t, (&DateParts{DateParts: [][]int{{}}}).Year())
	assert.Equal(t, 2021, (&DateParts{DateParts: [][]int{{2021, 3}}}).Year())
}
