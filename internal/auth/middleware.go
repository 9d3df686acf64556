package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDContextKey = "auth.user_id"

// UserID returns the authenticated user id set by RequireUser, or "".
func UserID(c echo.Context) string {
	if v, ok := c.Get(userIDContextKey).(string); ok {
		return v
	}
	return ""
}

// RequireUser returns an Echo middleware that rejects requests without a
// valid bearer token and puts the token subject on the context.
func RequireUser(manager *JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No authorization header"})
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := manager.ValidateToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			c.Set(userIDContextKey, claims.Subject)
			return next(c)
		}
	}
}

// RequireAdminToken guards internal endpoints with a static service token
// carried in the X-Admin-Token header.
func RequireAdminToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" || c.Request().Header.Get("X-Admin-Token") != token {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
