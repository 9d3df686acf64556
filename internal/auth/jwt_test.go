package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relevance-gateway/internal/auth"
)

func TestJWTManager_ValidateToken(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")

	token, err := manager.GenerateToken("user-42", time.Hour)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")

	token, err := manager.GenerateToken("user-42", -time.Minute)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestJWTManager_ValidateToken_WrongSecret(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")
	other := auth.NewJWTManager("other-secret")

	token, err := other.GenerateToken("user-42", time.Hour)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTManager_ValidateToken_Garbage(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")

	_, err := manager.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTManager_ValidateToken_EmptySubject(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")

	token, err := manager.GenerateToken("", time.Hour)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}

func newAuthedEcho(manager *auth.JWTManager) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", auth.RequireUser(manager))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, auth.UserID(c))
	})
	return e
}

func TestRequireUser(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")
	e := newAuthedEcho(manager)

	token, err := manager.GenerateToken("user-7", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", rec.Body.String())
}

func TestRequireUser_MissingHeader(t *testing.T) {
	e := newAuthedEcho(auth.NewJWTManager("test-secret"))

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No authorization header"}`, rec.Body.String())
}

func TestRequireUser_BadToken(t *testing.T) {
	e := newAuthedEcho(auth.NewJWTManager("test-secret"))

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer bogus")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestRequireAdminToken(t *testing.T) {
	e := echo.New()
	g := e.Group("/internal", auth.RequireAdminToken("svc-token"))
	g.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set("X-Admin-Token", "svc-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminToken_EmptyConfiguredTokenAlwaysRejects(t *testing.T) {
	e := echo.New()
	g := e.Group("/internal", auth.RequireAdminToken(""))
	g.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/internal/ping", nil)
	req.Header.Set("X-Admin-Token", "")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
