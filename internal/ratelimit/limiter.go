// Package ratelimit provides a database-backed request limiter with
// admin-configurable per-resource thresholds and a fail-open policy:
// when the limiter's own infrastructure is unhealthy, traffic proceeds.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMaxRequests applies when neither the caller nor the store
	// supplies a ceiling.
	DefaultMaxRequests = 100
	// DefaultWindow applies when neither the caller nor the store supplies
	// a window duration.
	DefaultWindow = 60 * time.Second

	configCacheSize = 256
)

// StoreConfig is the per-resource-type row kept in the store.
type StoreConfig struct {
	MaxRequests    int
	WindowDuration time.Duration
	Enabled        bool
}

// CheckResult is the output of the store's atomic check-and-increment.
type CheckResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store is the persistence boundary of the limiter. CheckAndIncrement must be
// atomic with respect to concurrent callers for the same (userID, resourceType);
// the windowing algorithm is the store's business.
type Store interface {
	// ReadConfig returns the configured thresholds for a resource type,
	// or nil when no row exists.
	ReadConfig(ctx context.Context, resourceType string) (*StoreConfig, error)

	// CheckAndIncrement decides whether the caller's current window has
	// remaining quota, counts the request if and only if it is within the
	// ceiling's reach, and reports the window reset time.
	CheckAndIncrement(ctx context.Context, userID, resourceType string, maxRequests int, window time.Duration, now time.Time) (*CheckResult, error)
}

// Config parameterizes one check. MaxRequests and WindowDuration are optional
// overrides; zero values defer to the store row, then to the defaults.
type Config struct {
	ResourceType   string
	MaxRequests    int
	WindowDuration time.Duration
}

// Result is the outcome of one check. It is computed fresh per call; the
// durable counter state lives in the store.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter wraps the store primitives with config resolution and fail-open
// error handling. Check never returns an error: every failure path resolves
// to an allowed result.
type Limiter struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	// configCache keeps resolved store rows briefly so hot endpoints do not
	// pay a config read per request. Entries may be nil (row absent).
	configCache *expirable.LRU[string, *StoreConfig]
}

// LimiterOption customizes a Limiter.
type LimiterOption func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// WithConfigCacheTTL enables caching of store config rows for ttl.
// A zero ttl disables the cache (every check reads the store).
func WithConfigCacheTTL(ttl time.Duration) LimiterOption {
	return func(l *Limiter) {
		if ttl > 0 {
			l.configCache = expirable.NewLRU[string, *StoreConfig](configCacheSize, nil, ttl)
		} else {
			l.configCache = nil
		}
	}
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(store Store, logger *slog.Logger, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check decides whether a new request by userID against cfg.ResourceType may
// proceed. Resolution order for thresholds: caller overrides, store row, hard
// defaults. A disabled resource always allows without touching the counter.
func (l *Limiter) Check(ctx context.Context, userID string, cfg Config) Result {
	now := l.now()

	limit := cfg.MaxRequests
	window := cfg.WindowDuration
	enabled := true

	// Only consult the store when the caller left something unresolved.
	if limit <= 0 || window <= 0 {
		if row := l.resolveConfig(ctx, cfg.ResourceType); row != nil {
			if limit <= 0 {
				limit = row.MaxRequests
			}
			if window <= 0 {
				window = row.WindowDuration
			}
			enabled = row.Enabled
		}
	}
	if limit <= 0 {
		limit = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}

	if !enabled {
		return Result{Allowed: true, Remaining: limit, ResetAt: now.Add(window), Limit: limit}
	}

	check, err := l.store.CheckAndIncrement(ctx, userID, cfg.ResourceType, limit, window, now)
	if err != nil {
		l.logger.Error("rate_limit_check_failed_failing_open",
			slog.String("resource_type", cfg.ResourceType),
			slog.String("error", err.Error()))
		return Result{Allowed: true, Remaining: limit, ResetAt: now.Add(window), Limit: limit}
	}
	if check == nil {
		l.logger.Error("rate_limit_check_empty_result_failing_open",
			slog.String("resource_type", cfg.ResourceType))
		return Result{Allowed: true, Remaining: limit, ResetAt: now.Add(window), Limit: limit}
	}

	return Result{
		Allowed:   check.Allowed,
		Remaining: check.Remaining,
		ResetAt:   check.ResetAt,
		Limit:     limit,
	}
}

// resolveConfig reads the store row for a resource type, going through the
// cache when one is configured. A read error is logged and treated as
// row-absent so the caller falls through to defaults.
func (l *Limiter) resolveConfig(ctx context.Context, resourceType string) *StoreConfig {
	if l.configCache != nil {
		if row, ok := l.configCache.Get(resourceType); ok {
			return row
		}
	}

	row, err := l.store.ReadConfig(ctx, resourceType)
	if err != nil {
		l.logger.Warn("rate_limit_config_read_failed",
			slog.String("resource_type", resourceType),
			slog.String("error", err.Error()))
		return nil
	}

	if l.configCache != nil {
		l.configCache.Add(resourceType, row)
	}
	return row
}
