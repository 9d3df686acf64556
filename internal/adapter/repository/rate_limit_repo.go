package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relevance-gateway/internal/ratelimit"
)

// RateLimitRepository is the Postgres-backed ratelimit.Store plus the admin
// operations used by the internal API and the limits CLI.
type RateLimitRepository struct {
	pool *pgxpool.Pool
}

// NewRateLimitRepository creates a new RateLimitRepository.
func NewRateLimitRepository(pool *pgxpool.Pool) *RateLimitRepository {
	return &RateLimitRepository{pool: pool}
}

var _ ratelimit.Store = (*RateLimitRepository)(nil)

// ReadConfig returns the configured thresholds for a resource type, or nil
// when no row exists.
func (r *RateLimitRepository) ReadConfig(ctx context.Context, resourceType string) (*ratelimit.StoreConfig, error) {
	query := `
		SELECT max_requests, window_duration_ms, is_enabled
		FROM rate_limit_configs
		WHERE resource_type = $1
	`
	var (
		maxRequests int
		windowMs    int64
		enabled     bool
	)
	err := r.pool.QueryRow(ctx, query, resourceType).Scan(&maxRequests, &windowMs, &enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit config: %w", err)
	}

	return &ratelimit.StoreConfig{
		MaxRequests:    maxRequests,
		WindowDuration: time.Duration(windowMs) * time.Millisecond,
		Enabled:        enabled,
	}, nil
}

// CheckAndIncrement counts a request against the caller's current window in a
// single atomic upsert, so concurrent callers for the same (user, resource)
// serialize on the counter row.
//
// Windowing: fixed window anchored at the first request of the window. An
// expired window resets on the next request; within a window the count keeps
// incrementing and any request pushing it past the ceiling is denied.
func (r *RateLimitRepository) CheckAndIncrement(ctx context.Context, userID, resourceType string, maxRequests int, window time.Duration, now time.Time) (*ratelimit.CheckResult, error) {
	query := `
		INSERT INTO rate_limit_counters (user_id, resource_type, window_start_ms, request_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, resource_type) DO UPDATE SET
			window_start_ms = CASE
				WHEN rate_limit_counters.window_start_ms + $4 <= $3 THEN $3
				ELSE rate_limit_counters.window_start_ms
			END,
			request_count = CASE
				WHEN rate_limit_counters.window_start_ms + $4 <= $3 THEN 1
				ELSE rate_limit_counters.request_count + 1
			END
		RETURNING window_start_ms, request_count
	`

	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	var (
		windowStartMs int64
		count         int
	)
	err := r.pool.QueryRow(ctx, query, userID, resourceType, nowMs, windowMs).Scan(&windowStartMs, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to check and increment rate limit: %w", err)
	}

	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return &ratelimit.CheckResult{
		Allowed:   count <= maxRequests,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(windowStartMs + windowMs),
	}, nil
}

// ResourceConfig is one admin-visible rate_limit_configs row.
type ResourceConfig struct {
	ResourceType     string    `json:"resource_type"`
	MaxRequests      int       `json:"max_requests"`
	WindowDurationMs int64     `json:"window_duration_ms"`
	IsEnabled        bool      `json:"is_enabled"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListConfigs returns all configured resource types.
func (r *RateLimitRepository) ListConfigs(ctx context.Context) ([]ResourceConfig, error) {
	query := `
		SELECT resource_type, max_requests, window_duration_ms, is_enabled, updated_at
		FROM rate_limit_configs
		ORDER BY resource_type
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rate limit configs: %w", err)
	}
	defer rows.Close()

	var configs []ResourceConfig
	for rows.Next() {
		var c ResourceConfig
		if err := rows.Scan(&c.ResourceType, &c.MaxRequests, &c.WindowDurationMs, &c.IsEnabled, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate limit config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return configs, nil
}

// UpsertConfig creates or replaces the thresholds for a resource type.
func (r *RateLimitRepository) UpsertConfig(ctx context.Context, resourceType string, maxRequests int, windowMs int64, enabled bool) error {
	query := `
		INSERT INTO rate_limit_configs (resource_type, max_requests, window_duration_ms, is_enabled, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (resource_type) DO UPDATE SET
			max_requests = EXCLUDED.max_requests,
			window_duration_ms = EXCLUDED.window_duration_ms,
			is_enabled = EXCLUDED.is_enabled,
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, resourceType, maxRequests, windowMs, enabled); err != nil {
		return fmt.Errorf("failed to upsert rate limit config: %w", err)
	}
	return nil
}

// SetEnabled flips the enabled flag for a resource type.
func (r *RateLimitRepository) SetEnabled(ctx context.Context, resourceType string, enabled bool) error {
	query := `
		UPDATE rate_limit_configs SET is_enabled = $2, updated_at = now()
		WHERE resource_type = $1
	`
	tag, err := r.pool.Exec(ctx, query, resourceType, enabled)
	if err != nil {
		return fmt.Errorf("failed to update rate limit config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no rate limit config for resource type %q", resourceType)
	}
	return nil
}
