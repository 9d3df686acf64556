package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"relevance-gateway/internal/adapter/repository"
	"relevance-gateway/internal/auth"
	"relevance-gateway/internal/domain"
	"relevance-gateway/internal/usecase"
)

// RateLimitAdmin is the slice of the rate limit repository used by the
// internal administration endpoints.
type RateLimitAdmin interface {
	ListConfigs(ctx context.Context) ([]repository.ResourceConfig, error)
	UpsertConfig(ctx context.Context, resourceType string, maxRequests int, windowMs int64, enabled bool) error
}

// Handler serves the relevance API: re-ranking, search, and the internal
// rate-limit administration endpoints.
type Handler struct {
	rerankUsecase usecase.RerankUsecase
	searchUsecase usecase.SearchUsecase
	rateLimitRepo RateLimitAdmin
	logger        *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	rerankUsecase usecase.RerankUsecase,
	searchUsecase usecase.SearchUsecase,
	rateLimitRepo RateLimitAdmin,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		rerankUsecase: rerankUsecase,
		searchUsecase: searchUsecase,
		rateLimitRepo: rateLimitRepo,
		logger:        logger,
	}
}

// RerankRequest is the inbound payload of POST /v1/rerank.
type RerankRequest struct {
	Query     string                  `json:"query"`
	Chunks    []domain.ChunkCandidate `json:"chunks"`
	TopK      int                     `json:"top_k"`
	BatchSize int                     `json:"batch_size"`
}

// RerankResponse is the outbound payload of POST /v1/rerank.
type RerankResponse struct {
	Success         bool                    `json:"success"`
	Query           string                  `json:"query"`
	Model           string                  `json:"model,omitempty"`
	TotalCandidates int                     `json:"total_candidates"`
	Returned        int                     `json:"returned"`
	Results         []domain.RerankedResult `json:"results"`
}

// rerankRequestExample is echoed in 400 responses so integrators can see the
// expected shape without leaving their terminal.
var rerankRequestExample = map[string]any{
	"query": "What are the key insights from customer calls?",
	"chunks": []map[string]any{{
		"chunk_id":     "uuid-1",
		"chunk_text":   "chunk content here",
		"recording_id": 123,
		"speaker_name": "John Doe",
		"call_title":   "Customer Discovery Call",
		"rrf_score":    0.75,
	}},
	"top_k": 5,
}

// Rerank re-orders a candidate set by cross-encoder relevance.
// (POST /v1/rerank)
func (h *Handler) Rerank(c echo.Context) error {
	var req RerankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Query == "" || req.Chunks == nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":   "query (string) and chunks (array) are required",
			"example": rerankRequestExample,
		})
	}

	output, err := h.rerankUsecase.Execute(c.Request().Context(), usecase.RerankInput{
		Query:      req.Query,
		Candidates: req.Chunks,
		TopK:       req.TopK,
		BatchSize:  req.BatchSize,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuery) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.logger.Error("rerank_request_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	resp := RerankResponse{
		Success:         true,
		Query:           req.Query,
		TotalCandidates: output.TotalCandidates,
		Returned:        len(output.Results),
		Results:         output.Results,
	}
	if output.TotalCandidates > 0 {
		resp.Model = output.Model
	}
	return c.JSON(http.StatusOK, resp)
}

// SearchRequest is the inbound payload of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	TopK  int    `json:"top_k"`
}

// SearchResponse is the outbound payload of POST /v1/search.
type SearchResponse struct {
	Success         bool                    `json:"success"`
	Query           string                  `json:"query"`
	Model           string                  `json:"model"`
	TotalCandidates int                     `json:"total_candidates"`
	Returned        int                     `json:"returned"`
	Results         []domain.RerankedResult `json:"results"`
	Timings         usecase.SearchTimings   `json:"timings"`
}

// Search runs the full query path: embed, hybrid retrieve, rerank.
// (POST /v1/search)
func (h *Handler) Search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Query string is required"})
	}

	output, err := h.searchUsecase.Execute(c.Request().Context(), usecase.SearchInput{
		UserID: auth.UserID(c),
		Query:  req.Query,
		Limit:  req.Limit,
		TopK:   req.TopK,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrQueryTooShort) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Query must be at least 2 characters"})
		}
		h.logger.Error("search_request_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, SearchResponse{
		Success:         true,
		Query:           req.Query,
		Model:           output.Model,
		TotalCandidates: output.TotalCandidates,
		Returned:        len(output.Results),
		Results:         output.Results,
		Timings:         output.Timings,
	})
}

// ListRateLimits returns all configured resource thresholds.
// (GET /internal/rate-limits)
func (h *Handler) ListRateLimits(c echo.Context) error {
	configs, err := h.rateLimitRepo.ListConfigs(c.Request().Context())
	if err != nil {
		h.logger.Error("rate_limit_list_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if configs == nil {
		configs = []repository.ResourceConfig{}
	}
	return c.JSON(http.StatusOK, map[string]any{"configs": configs})
}

// UpsertRateLimitRequest is the inbound payload of PUT /internal/rate-limits/:resource.
type UpsertRateLimitRequest struct {
	MaxRequests      int   `json:"max_requests"`
	WindowDurationMs int64 `json:"window_duration_ms"`
	IsEnabled        *bool `json:"is_enabled"`
}

// UpsertRateLimit creates or replaces the thresholds for one resource type.
// (PUT /internal/rate-limits/:resource)
func (h *Handler) UpsertRateLimit(c echo.Context) error {
	resourceType := c.Param("resource")
	if resourceType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "resource type is required"})
	}

	var req UpsertRateLimitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.MaxRequests <= 0 || req.WindowDurationMs <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "max_requests and window_duration_ms must be positive"})
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	if err := h.rateLimitRepo.UpsertConfig(c.Request().Context(), resourceType, req.MaxRequests, req.WindowDurationMs, enabled); err != nil {
		h.logger.Error("rate_limit_upsert_failed",
			slog.String("resource_type", resourceType),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	h.logger.Info("rate_limit_config_updated",
		slog.String("resource_type", resourceType),
		slog.Int("max_requests", req.MaxRequests),
		slog.Int64("window_duration_ms", req.WindowDurationMs),
		slog.Bool("is_enabled", enabled))

	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}
