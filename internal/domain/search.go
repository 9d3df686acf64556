package domain

import "context"

// HybridSearchParams parameterize one call to the hybrid search function.
// The fusion math (vector cosine + full-text RRF) lives in the database
// function; this side only supplies weights and consumes fused candidates.
type HybridSearchParams struct {
	QueryText      string
	QueryEmbedding []float32
	MatchCount     int
	FullTextWeight float64
	SemanticWeight float64
	RRFK           int
	UserID         string
}

// HybridSearcher retrieves fused-score transcript candidates for a query.
type HybridSearcher interface {
	Search(ctx context.Context, params HybridSearchParams) ([]ChunkCandidate, error)
}

// QueryEmbedder turns a search query into a dense vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the embedding model identifier.
	ModelName() string
}
