package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"relevance-gateway/internal/adapter/httpapi"
	"relevance-gateway/internal/adapter/huggingface"
	"relevance-gateway/internal/adapter/openai"
	"relevance-gateway/internal/adapter/repository"
	"relevance-gateway/internal/adapter/searchdb"
	"relevance-gateway/internal/auth"
	"relevance-gateway/internal/infra/config"
	"relevance-gateway/internal/infra/httpclient"
	"relevance-gateway/internal/ratelimit"
	"relevance-gateway/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	RateLimitRepo *repository.RateLimitRepository
	Limiter       *ratelimit.Limiter
	JWTManager    *auth.JWTManager
	Handler       *httpapi.Handler

	RerankUsecase usecase.RerankUsecase
	SearchUsecase usecase.SearchUsecase
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Persistence
	rateLimitRepo := repository.NewRateLimitRepository(pool)
	searchClient := searchdb.NewHybridSearchClient(pool)

	// External clients with a shared connection pool
	scorerHTTP := httpclient.NewPooledClient(time.Duration(cfg.Scorer.TimeoutSeconds) * time.Second)
	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.Embedder.TimeoutSeconds) * time.Second)

	scorer := huggingface.NewCrossEncoderClient(
		cfg.Scorer.URL,
		cfg.Scorer.Model,
		cfg.Scorer.APIKey,
		time.Duration(cfg.Scorer.TimeoutSeconds)*time.Second,
		log,
		huggingface.WithHTTPClient(scorerHTTP),
		huggingface.WithRetryCooldown(time.Duration(cfg.Scorer.RetryCooldownMs)*time.Millisecond),
	)
	embedder := openai.NewEmbedderClient(
		cfg.Embedder.URL,
		cfg.Embedder.Model,
		cfg.Embedder.APIKey,
		time.Duration(cfg.Embedder.TimeoutSeconds)*time.Second,
		log,
		embedderHTTP,
	)

	// Usecases
	rerankUsecase := usecase.NewRerankUsecase(scorer, log,
		usecase.WithBatchDelay(time.Duration(cfg.Scorer.BatchDelayMs)*time.Millisecond))
	searchUsecase := usecase.NewSearchUsecase(embedder, searchClient, rerankUsecase,
		usecase.SearchConfig{
			FullTextWeight: cfg.Search.FullTextWeight,
			SemanticWeight: cfg.Search.SemanticWeight,
			RRFK:           cfg.Search.RRFK,
			TopK:           cfg.Scorer.TopK,
		}, log)

	// Rate limiting
	limiter := ratelimit.NewLimiter(rateLimitRepo, log,
		ratelimit.WithConfigCacheTTL(time.Duration(cfg.RateLimit.ConfigCacheTTLSeconds)*time.Second))

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret)
	handler := httpapi.NewHandler(rerankUsecase, searchUsecase, rateLimitRepo, log)

	return &ApplicationComponents{
		RateLimitRepo: rateLimitRepo,
		Limiter:       limiter,
		JWTManager:    jwtManager,
		Handler:       handler,
		RerankUsecase: rerankUsecase,
		SearchUsecase: searchUsecase,
	}
}
