package searchdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"relevance-gateway/internal/domain"
)

// HybridSearchClient calls the hybrid_search_transcripts SQL function, which
// fuses vector-cosine and full-text rankings inside the database. Its fusion
// math is the database's contract; this adapter only shapes inputs and rows.
type HybridSearchClient struct {
	pool *pgxpool.Pool
}

// NewHybridSearchClient creates a new HybridSearchClient.
func NewHybridSearchClient(pool *pgxpool.Pool) *HybridSearchClient {
	return &HybridSearchClient{pool: pool}
}

var _ domain.HybridSearcher = (*HybridSearchClient)(nil)

// Search retrieves fused-score candidates for a query.
func (c *HybridSearchClient) Search(ctx context.Context, params domain.HybridSearchParams) ([]domain.ChunkCandidate, error) {
	query := `
		SELECT chunk_id, chunk_text, recording_id, speaker_name, call_title, rrf_score
		FROM hybrid_search_transcripts(
			query_text      => $1,
			query_embedding => $2,
			match_count     => $3,
			full_text_weight => $4,
			semantic_weight  => $5,
			rrf_k            => $6,
			filter_user_id   => $7
		)
	`
	rows, err := c.pool.Query(ctx, query,
		params.QueryText,
		pgvector.NewVector(params.QueryEmbedding),
		params.MatchCount,
		params.FullTextWeight,
		params.SemanticWeight,
		params.RRFK,
		params.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ChunkCandidate
	for rows.Next() {
		var (
			cand        domain.ChunkCandidate
			speakerName *string
			callTitle   *string
		)
		if err := rows.Scan(&cand.ChunkID, &cand.ChunkText, &cand.RecordingID, &speakerName, &callTitle, &cand.RetrievalScore); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		if speakerName != nil {
			cand.SpeakerName = *speakerName
		}
		if callTitle != nil {
			cand.CallTitle = *callTitle
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return candidates, nil
}
