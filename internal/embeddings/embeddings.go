// Package embeddings provides text embedding clients used for semantic
// similarity scoring during ranking.
//
// The package defines the Embedder interface consumed by the ranker and an
// OpenAI-compatible HTTP implementation. Any API exposing the
// /embeddings endpoint shape (OpenAI, Azure OpenAI with a raw deployment URL,
// local inference servers) can back the client via its BaseURL.
package embeddings

import (
	"context"
	"math"
)

// Embedder produces vector representations of texts for semantic scoring.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model identifier being used.
	Model() string
}

// CosineSimilarity computes the cosine similarity between two vectors,
// mapped from [-1, 1] to [0, 1]. Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
