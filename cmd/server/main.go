package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"relevance-gateway/internal/auth"
	"relevance-gateway/internal/di"
	"relevance-gateway/internal/infra"
	"relevance-gateway/internal/infra/config"
	"relevance-gateway/internal/infra/logger"
	"relevance-gateway/internal/ratelimit"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	// 3. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Wire components
	components := di.NewApplicationComponents(cfg, dbPool, log)

	// 5. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	ipGuard := ratelimit.NewIPLimiter(rate.Limit(cfg.IPGuard.RequestsPerSecond), cfg.IPGuard.Burst)
	e.Use(ipGuard.Middleware())

	// 6. Routes
	v1 := e.Group("/v1", auth.RequireUser(components.JWTManager))
	v1.POST("/search", components.Handler.Search,
		ratelimit.Middleware(components.Limiter, "search"))
	v1.POST("/rerank", components.Handler.Rerank,
		ratelimit.Middleware(components.Limiter, "rerank"))

	internalGroup := e.Group("/internal", auth.RequireAdminToken(cfg.Auth.AdminToken))
	internalGroup.GET("/rate-limits", components.Handler.ListRateLimits)
	internalGroup.PUT("/rate-limits/:resource", components.Handler.UpsertRateLimit)

	// 7. Health Checks
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 8. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("Starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
