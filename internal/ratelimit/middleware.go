package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"relevance-gateway/internal/auth"
)

// ExceededBody is the JSON body of a 429 response.
type ExceededBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
	ResetAt    string `json:"reset_at"`
	RequestID  string `json:"request_id,omitempty"`
}

// NewExceededBody builds the canonical rate-limit-exceeded payload.
func NewExceededBody(result Result, requestID string) ExceededBody {
	return ExceededBody{
		Error:      "Rate limit exceeded",
		Message:    formatExceededMessage(result.Limit),
		RetryAfter: retryAfterSeconds(result, time.Now()),
		ResetAt:    result.ResetAt.UTC().Format(time.RFC3339),
		RequestID:  requestID,
	}
}

// WriteExceeded short-circuits an echo request with a complete 429 response:
// the exceeded body plus the full rate limit header set including Retry-After.
func WriteExceeded(c echo.Context, result Result, requestID string) error {
	for k, v := range Headers(result, true) {
		c.Response().Header().Set(k, v)
	}
	return c.JSON(http.StatusTooManyRequests, NewExceededBody(result, requestID))
}

// Middleware gates a route group on the database-backed limiter. The user id
// must already be on the context (set by the auth middleware). Allowed
// requests carry the rate limit headers on their response.
func Middleware(limiter *Limiter, resourceType string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := auth.UserID(c)
			if userID == "" {
				// Auth middleware did not run; nothing sane to key on.
				return next(c)
			}

			result := limiter.Check(c.Request().Context(), userID, Config{ResourceType: resourceType})
			if !result.Allowed {
				requestID := c.Response().Header().Get(echo.HeaderXRequestID)
				return WriteExceeded(c, result, requestID)
			}

			for k, v := range Headers(result, false) {
				c.Response().Header().Set(k, v)
			}
			return next(c)
		}
	}
}

func formatExceededMessage(limit int) string {
	return fmt.Sprintf("Maximum %d requests per window", limit)
}
