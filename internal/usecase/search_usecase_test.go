package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relevance-gateway/internal/domain"
	"relevance-gateway/internal/usecase"
)

type fakeEmbedder struct {
	embedding []float32
	err       error
	lastText  string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.lastText = text
	return f.embedding, f.err
}

func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

type fakeSearcher struct {
	candidates []domain.ChunkCandidate
	err        error
	lastParams domain.HybridSearchParams
}

func (f *fakeSearcher) Search(ctx context.Context, params domain.HybridSearchParams) ([]domain.ChunkCandidate, error) {
	f.lastParams = params
	return f.candidates, f.err
}

func TestSearchUsecase_Execute(t *testing.T) {
	embedder := &fakeEmbedder{embedding: []float32{0.1, 0.2, 0.3}}
	searcher := &fakeSearcher{candidates: candidates(4)}
	reranker := usecase.NewRerankUsecase(&fakeScorer{}, discardLogger())
	cfg := usecase.SearchConfig{FullTextWeight: 1.0, SemanticWeight: 1.0, RRFK: 60, TopK: 5}

	uc := usecase.NewSearchUsecase(embedder, searcher, reranker, cfg, discardLogger())

	out, err := uc.Execute(context.Background(), usecase.SearchInput{
		UserID: "user-123",
		Query:  "  renewal pricing  ",
		Limit:  10,
	})
	require.NoError(t, err)

	assert.Equal(t, "renewal pricing", embedder.lastText)
	assert.Equal(t, "renewal pricing", searcher.lastParams.QueryText)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, searcher.lastParams.QueryEmbedding)
	assert.Equal(t, 10, searcher.lastParams.MatchCount)
	assert.Equal(t, 60, searcher.lastParams.RRFK)
	assert.Equal(t, "user-123", searcher.lastParams.UserID)

	assert.Len(t, out.Results, 4)
	assert.Equal(t, 4, out.TotalCandidates)
	assert.Equal(t, "fake-cross-encoder", out.Model)
}

func TestSearchUsecase_Execute_DefaultLimit(t *testing.T) {
	embedder := &fakeEmbedder{embedding: []float32{0.1}}
	searcher := &fakeSearcher{}
	reranker := usecase.NewRerankUsecase(&fakeScorer{}, discardLogger())

	uc := usecase.NewSearchUsecase(embedder, searcher, reranker, usecase.SearchConfig{TopK: 5}, discardLogger())

	_, err := uc.Execute(context.Background(), usecase.SearchInput{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultSearchLimit, searcher.lastParams.MatchCount)
}

func TestSearchUsecase_Execute_QueryTooShort(t *testing.T) {
	uc := usecase.NewSearchUsecase(&fakeEmbedder{}, &fakeSearcher{},
		usecase.NewRerankUsecase(&fakeScorer{}, discardLogger()),
		usecase.SearchConfig{TopK: 5}, discardLogger())

	for _, q := range []string{"", "a", "  a  "} {
		_, err := uc.Execute(context.Background(), usecase.SearchInput{Query: q})
		assert.ErrorIs(t, err, usecase.ErrQueryTooShort, "query %q", q)
	}
}

func TestSearchUsecase_Execute_EmbedderError(t *testing.T) {
	embedErr := errors.New("embedding service unavailable")
	uc := usecase.NewSearchUsecase(&fakeEmbedder{err: embedErr}, &fakeSearcher{},
		usecase.NewRerankUsecase(&fakeScorer{}, discardLogger()),
		usecase.SearchConfig{TopK: 5}, discardLogger())

	_, err := uc.Execute(context.Background(), usecase.SearchInput{Query: "hello"})
	assert.ErrorIs(t, err, embedErr)
}

func TestSearchUsecase_Execute_SearcherError(t *testing.T) {
	searchErr := errors.New("db down")
	uc := usecase.NewSearchUsecase(&fakeEmbedder{embedding: []float32{0.1}},
		&fakeSearcher{err: searchErr},
		usecase.NewRerankUsecase(&fakeScorer{}, discardLogger()),
		usecase.SearchConfig{TopK: 5}, discardLogger())

	_, err := uc.Execute(context.Background(), usecase.SearchInput{Query: "hello"})
	assert.ErrorIs(t, err, searchErr)
}
