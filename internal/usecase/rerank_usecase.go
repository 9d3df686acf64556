package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"relevance-gateway/internal/domain"
)

const (
	// DefaultTopK is how many results are returned when the caller does not say.
	DefaultTopK = 5
	// DefaultBatchSize bounds concurrent outbound scoring calls per batch.
	DefaultBatchSize = 5
	// DefaultBatchDelay is the fixed pacing delay between scoring batches.
	// This is local backoff toward the scorer, not caller-facing rate limiting.
	DefaultBatchDelay = 100 * time.Millisecond
)

// ErrEmptyQuery is returned when the query is missing. It is the only
// caller-input error the reranker reports; scorer failures never surface.
var ErrEmptyQuery = errors.New("query is empty")

// RerankInput defines the input for one re-ranking pass.
type RerankInput struct {
	Query      string
	Candidates []domain.ChunkCandidate
	TopK       int
	BatchSize  int
}

// RerankOutput carries the reordered results plus response metadata.
type RerankOutput struct {
	Results         []domain.RerankedResult
	TotalCandidates int
	Model           string
}

// RerankUsecase produces a final relevance ordering for a candidate set.
type RerankUsecase interface {
	Execute(ctx context.Context, input RerankInput) (*RerankOutput, error)
}

type rerankUsecase struct {
	scorer     domain.PairScorer
	batchDelay time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration)
}

// RerankOption customizes the usecase.
type RerankOption func(*rerankUsecase)

// WithBatchDelay overrides the inter-batch pacing delay.
func WithBatchDelay(d time.Duration) RerankOption {
	return func(u *rerankUsecase) { u.batchDelay = d }
}

// WithSleep replaces the pacing sleep. Tests use this to observe batch
// boundaries without real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) RerankOption {
	return func(u *rerankUsecase) { u.sleep = sleep }
}

// NewRerankUsecase creates a new RerankUsecase.
func NewRerankUsecase(scorer domain.PairScorer, logger *slog.Logger, opts ...RerankOption) RerankUsecase {
	u := &rerankUsecase{
		scorer:     scorer,
		batchDelay: DefaultBatchDelay,
		logger:     logger,
		sleep:      sleepFor,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute scores candidates in sequential batches (concurrent within a batch),
// sorts by rerank score descending with original order breaking ties, assigns
// 1-based final ranks and truncates to topK. A failed scoring call downgrades
// that one item to its retrieval score; the pass as a whole only fails on
// caller input.
func (u *rerankUsecase) Execute(ctx context.Context, input RerankInput) (*RerankOutput, error) {
	if input.Query == "" {
		return nil, ErrEmptyQuery
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := &RerankOutput{
		Results:         []domain.RerankedResult{},
		TotalCandidates: len(input.Candidates),
		Model:           u.scorer.ModelName(),
	}
	if len(input.Candidates) == 0 {
		return out, nil
	}

	start := time.Now()
	u.logger.Info("reranking_started",
		slog.String("query", truncate(input.Query, 100)),
		slog.Int("candidate_count", len(input.Candidates)),
		slog.Int("top_k", topK),
		slog.Int("batch_size", batchSize),
		slog.String("model", u.scorer.ModelName()))

	scored := u.scoreAll(ctx, input.Query, input.Candidates, batchSize)

	// Stable sort keeps original candidate order on ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})
	for i := range scored {
		scored[i].FinalRank = i + 1
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}
	out.Results = scored

	fallbacks := 0
	for _, r := range scored {
		if r.Source == domain.ScoreSourceRetrieval {
			fallbacks++
		}
	}
	u.logger.Info("reranking_completed",
		slog.Int("candidate_count", out.TotalCandidates),
		slog.Int("returned", len(scored)),
		slog.Int("fallback_count", fallbacks),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return out, nil
}

// scoreAll walks the candidates in batches of batchSize. Every batch settles
// completely (score or fallback) before the next starts, with the pacing
// delay between batches but not after the last.
func (u *rerankUsecase) scoreAll(ctx context.Context, query string, candidates []domain.ChunkCandidate, batchSize int) []domain.RerankedResult {
	results := make([]domain.RerankedResult, len(candidates))

	for offset := 0; offset < len(candidates); offset += batchSize {
		end := offset + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := offset; i < end; i++ {
			g.Go(func() error {
				results[i] = u.scoreOne(gctx, query, candidates[i])
				return nil
			})
		}
		_ = g.Wait()

		if end < len(candidates) {
			u.sleep(ctx, u.batchDelay)
		}
	}

	return results
}

func (u *rerankUsecase) scoreOne(ctx context.Context, query string, cand domain.ChunkCandidate) domain.RerankedResult {
	res := domain.RerankedResult{ChunkCandidate: cand}

	score, err := u.scorer.ScorePair(ctx, query, cand.ChunkText)
	if err != nil {
		u.logger.Warn("chunk_scoring_failed_using_retrieval_score",
			slog.String("chunk_id", cand.ChunkID),
			slog.String("error", err.Error()))
		res.RerankScore = cand.RetrievalScore
		res.Source = domain.ScoreSourceRetrieval
		return res
	}

	res.RerankScore = score.Score
	res.Source = domain.ScoreSourceModel
	if score.Neutral {
		res.Source = domain.ScoreSourceNeutral
	}
	return res
}

func sleepFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ RerankUsecase = (*rerankUsecase)(nil)
