package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"relevance-gateway/internal/domain"
)

const (
	// DefaultSearchLimit is how many candidates hybrid search retrieves when
	// the caller does not say.
	DefaultSearchLimit = 20
	// MinQueryLength is the shortest query accepted, after trimming.
	MinQueryLength = 2
)

// ErrQueryTooShort is returned for queries under MinQueryLength after trimming.
var ErrQueryTooShort = errors.New("query must be at least 2 characters")

// SearchInput defines the input for one search pass.
type SearchInput struct {
	UserID string
	Query  string
	Limit  int
	TopK   int
}

// SearchTimings carries per-stage elapsed milliseconds for the response.
type SearchTimings struct {
	EmbeddingMs int64 `json:"embedding_ms"`
	SearchMs    int64 `json:"search_ms"`
	RerankMs    int64 `json:"rerank_ms"`
}

// SearchOutput is the reranked result set for the UI.
type SearchOutput struct {
	Results         []domain.RerankedResult
	TotalCandidates int
	Model           string
	Timings         SearchTimings
}

// SearchUsecase runs the full query path: embed, hybrid retrieve, rerank.
type SearchUsecase interface {
	Execute(ctx context.Context, input SearchInput) (*SearchOutput, error)
}

// SearchConfig holds the retrieval-stage weights passed through to the
// hybrid search function.
type SearchConfig struct {
	FullTextWeight float64
	SemanticWeight float64
	RRFK           int
	TopK           int
}

type searchUsecase struct {
	embedder domain.QueryEmbedder
	searcher domain.HybridSearcher
	reranker RerankUsecase
	cfg      SearchConfig
	logger   *slog.Logger
}

// NewSearchUsecase creates a new SearchUsecase.
func NewSearchUsecase(
	embedder domain.QueryEmbedder,
	searcher domain.HybridSearcher,
	reranker RerankUsecase,
	cfg SearchConfig,
	logger *slog.Logger,
) SearchUsecase {
	return &searchUsecase{
		embedder: embedder,
		searcher: searcher,
		reranker: reranker,
		cfg:      cfg,
		logger:   logger,
	}
}

func (u *searchUsecase) Execute(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if len(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	topK := input.TopK
	if topK <= 0 {
		topK = u.cfg.TopK
	}

	embedStart := time.Now()
	embedding, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	embeddingMs := time.Since(embedStart).Milliseconds()

	searchStart := time.Now()
	candidates, err := u.searcher.Search(ctx, domain.HybridSearchParams{
		QueryText:      query,
		QueryEmbedding: embedding,
		MatchCount:     limit,
		FullTextWeight: u.cfg.FullTextWeight,
		SemanticWeight: u.cfg.SemanticWeight,
		RRFK:           u.cfg.RRFK,
		UserID:         input.UserID,
	})
	if err != nil {
		return nil, err
	}
	searchMs := time.Since(searchStart).Milliseconds()

	u.logger.Info("hybrid_search_completed",
		slog.String("query", truncate(query, 100)),
		slog.Int("candidate_count", len(candidates)),
		slog.Int64("search_ms", searchMs))

	rerankStart := time.Now()
	reranked, err := u.reranker.Execute(ctx, RerankInput{
		Query:      query,
		Candidates: candidates,
		TopK:       topK,
	})
	if err != nil {
		return nil, err
	}
	rerankMs := time.Since(rerankStart).Milliseconds()

	return &SearchOutput{
		Results:         reranked.Results,
		TotalCandidates: len(candidates),
		Model:           reranked.Model,
		Timings: SearchTimings{
			EmbeddingMs: embeddingMs,
			SearchMs:    searchMs,
			RerankMs:    rerankMs,
		},
	}, nil
}
