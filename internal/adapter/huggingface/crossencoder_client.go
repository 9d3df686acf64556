package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"relevance-gateway/internal/domain"
)

// NeutralScore is substituted when the model response cannot be interpreted.
const NeutralScore = 0.5

// DefaultRetryCooldown is how long to wait before the single retry when the
// inference endpoint reports the model is still loading (HTTP 503).
const DefaultRetryCooldown = 5 * time.Second

// scoreRequest is the inference API payload. The cross-encoder expects the
// query and document joined into a single input with a [SEP] token.
type scoreRequest struct {
	Inputs  string       `json:"inputs"`
	Options scoreOptions `json:"options"`
}

type scoreOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// classScore is one labeled classification score in the model output.
type classScore struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

// CrossEncoderClient implements domain.PairScorer against a HuggingFace-style
// inference endpoint (POST {base}/models/{model}).
type CrossEncoderClient struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client

	logger        *slog.Logger
	retryCooldown time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// Option customizes a CrossEncoderClient.
type Option func(*CrossEncoderClient)

// WithRetryCooldown overrides the model-loading retry cooldown.
func WithRetryCooldown(d time.Duration) Option {
	return func(c *CrossEncoderClient) { c.retryCooldown = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *CrossEncoderClient) { c.Client = client }
}

// NewCrossEncoderClient constructs a scorer client.
// baseURL is the inference API root (e.g. https://api-inference.huggingface.co).
// model is the cross-encoder model name (e.g. cross-encoder/ms-marco-MiniLM-L-12-v2).
func NewCrossEncoderClient(baseURL, model, apiKey string, timeout time.Duration, logger *slog.Logger, opts ...Option) *CrossEncoderClient {
	c := &CrossEncoderClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Model:         model,
		APIKey:        apiKey,
		Client:        &http.Client{Timeout: timeout},
		logger:        logger,
		retryCooldown: DefaultRetryCooldown,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScorePair scores one (query, document) pair.
// On HTTP 503 (model loading) it waits the cooldown and retries exactly once;
// a failed retry is a hard failure. Unexpected response shapes resolve to the
// neutral score rather than an error.
func (c *CrossEncoderClient) ScorePair(ctx context.Context, query, document string) (domain.PairScore, error) {
	input := query + " [SEP] " + document

	body, status, err := c.post(ctx, input)
	if err != nil {
		return domain.PairScore{}, err
	}

	if status == http.StatusServiceUnavailable {
		c.logger.Warn("scorer_model_loading",
			slog.String("model", c.Model),
			slog.Duration("cooldown", c.retryCooldown))

		if err := c.sleep(ctx, c.retryCooldown); err != nil {
			return domain.PairScore{}, fmt.Errorf("cooldown interrupted: %w", err)
		}

		body, status, err = c.post(ctx, input)
		if err != nil {
			return domain.PairScore{}, fmt.Errorf("scorer retry failed: %w", err)
		}
		if status != http.StatusOK {
			return domain.PairScore{}, fmt.Errorf("scorer retry returned %d", status)
		}
		return c.extractScore(body), nil
	}

	if status != http.StatusOK {
		return domain.PairScore{}, fmt.Errorf("scorer returned %d: %s", status, truncateString(string(body), 200))
	}
	return c.extractScore(body), nil
}

// ModelName returns the model identifier.
func (c *CrossEncoderClient) ModelName() string {
	return c.Model
}

func (c *CrossEncoderClient) post(ctx context.Context, input string) ([]byte, int, error) {
	payload, err := json.Marshal(scoreRequest{
		Inputs:  input,
		Options: scoreOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal score request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create score request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to call scorer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read scorer response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// extractScore pulls the relevance score out of the classification output.
// Expected shapes are either [{label, score}, ...] or a singly-nested
// [[{label, score}, ...]]; a bare number is accepted as the score itself.
// The label with the highest numeric index wins (convention for ms-marco
// cross-encoders: higher label index = more relevant). Anything else
// resolves to the neutral score.
func (c *CrossEncoderClient) extractScore(body []byte) domain.PairScore {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		c.logger.Warn("scorer_unexpected_response",
			slog.String("model", c.Model),
			slog.String("body", trimmed))
		return domain.PairScore{Score: NeutralScore, Neutral: true}
	}

	var flat []classScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return pickHighestLabel(flat)
	}

	var nested [][]classScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return pickHighestLabel(nested[0])
	}

	var bare float64
	if err := json.Unmarshal(body, &bare); err == nil {
		return domain.PairScore{Score: bare}
	}

	c.logger.Warn("scorer_unexpected_response",
		slog.String("model", c.Model),
		slog.String("body", truncateString(string(body), 200)))
	return domain.PairScore{Score: NeutralScore, Neutral: true}
}

var labelNumberRe = regexp.MustCompile(`\d+`)

func labelNumber(label string) int {
	m := labelNumberRe.FindString(label)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func pickHighestLabel(scores []classScore) domain.PairScore {
	sorted := make([]classScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return labelNumber(sorted[i].Label) > labelNumber(sorted[j].Label)
	})
	if sorted[0].Score == nil {
		return domain.PairScore{Score: NeutralScore, Neutral: true}
	}
	return domain.PairScore{Score: *sorted[0].Score}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
