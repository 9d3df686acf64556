package domain

import "context"

// PairScore is the outcome of scoring one (query, document) pair.
type PairScore struct {
	// Score is the relevance score in the model's native range (confidence-like,
	// 0..1 for ms-marco cross-encoders).
	Score float64
	// Neutral reports that the scorer response shape was unexpected and the
	// neutral fallback score was substituted.
	Neutral bool
}

// PairScorer scores a (query, document) pair with a cross-encoder model.
// Implementations own transport-level retry for transient model
// unavailability; any returned error is a hard failure for that pair and
// callers are expected to fall back to the original retrieval score.
type PairScorer interface {
	ScorePair(ctx context.Context, query, document string) (PairScore, error)

	// ModelName returns the model identifier for logging and responses.
	ModelName() string
}
