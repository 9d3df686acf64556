package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"relevance-gateway/internal/domain"
)

// EmbedderClient implements domain.QueryEmbedder against an OpenAI-compatible
// embeddings endpoint.
type EmbedderClient struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
	logger  *slog.Logger
}

// NewEmbedderClient constructs an embeddings client.
// baseURL is the API root (e.g. https://api.openai.com); if client is nil a
// default one is created with the given timeout.
func NewEmbedderClient(baseURL, model, apiKey string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *EmbedderClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &EmbedderClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		Client:  c,
		logger:  logger,
	}
}

var _ domain.QueryEmbedder = (*EmbedderClient)(nil)

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the dense vector for a query string.
func (e *EmbedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	payload, err := json.Marshal(embedRequest{Model: e.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		e.logger.Warn("embedding_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("failed to call embeddings endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, truncateBody(string(body), 200))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(embedResp.Data) == 0 || len(embedResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embeddings endpoint returned no vector")
	}

	e.logger.Info("embedding_completed",
		slog.Int("dimensions", len(embedResp.Data[0].Embedding)),
		slog.String("model", e.Model),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return embedResp.Data[0].Embedding, nil
}

// ModelName returns the embedding model identifier.
func (e *EmbedderClient) ModelName() string {
	return e.Model
}

func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
