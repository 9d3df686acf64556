package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"relevance-gateway/internal/ratelimit"
)

func newGuardedEcho(guard *ratelimit.IPLimiter) *echo.Echo {
	e := echo.New()
	e.Use(guard.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e
}

func ping(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIPLimiter_BurstThenThrottle(t *testing.T) {
	e := newGuardedEcho(ratelimit.NewIPLimiter(1, 2))

	assert.Equal(t, http.StatusNoContent, ping(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, ping(e, "10.0.0.1").Code)

	rec := ping(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestIPLimiter_IsolatesByIP(t *testing.T) {
	e := newGuardedEcho(ratelimit.NewIPLimiter(1, 1))

	assert.Equal(t, http.StatusNoContent, ping(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, ping(e, "10.0.0.1").Code)

	// A different client address gets its own bucket.
	assert.Equal(t, http.StatusNoContent, ping(e, "10.0.0.2").Code)
}
