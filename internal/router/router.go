package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utsavhq/guestsheet/internal/config"
	"github.com/utsavhq/guestsheet/internal/handler"
	"github.com/utsavhq/guestsheet/internal/middleware"
)

// RegisterRoutes wires every endpoint of the service.
//
// Unauthenticated: /healthz for load balancers and /metrics for the
// prometheus scraper.  Everything else lives under /v1 behind JWT
// verification and the planner role gate — the session API is a planner
// tool, not a guest-facing surface.
func RegisterRoutes(e *echo.Echo, h *handler.ImportHandler, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole("PLANNER", "ADMIN"))

	// Spreadsheet upload is the heaviest endpoint; the token bucket keeps a
	// runaway client from hammering it.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	v1.POST("/events/:eventID/import-sessions", h.CreateSession, limit)

	// Read-only roster proxy; identical for every authorized viewer of an
	// event, so it sits behind the response cache.
	cached := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	v1.GET("/events/:eventID/participants", h.ListParticipants, cached)

	// Session lifecycle.  Renders are always live: the grid mutates between
	// requests, so none of these go through the cache.
	v1.GET("/import-sessions/:id", h.GetSession)
	v1.PATCH("/import-sessions/:id/rows/:index", h.UpdateCell)
	v1.POST("/import-sessions/:id/refresh", h.RefreshSession)
	v1.POST("/import-sessions/:id/rows/:index/save", h.SaveRow, limit)
	v1.GET("/import-sessions/:id/rows/:index/document-upload", h.DocumentUploadTarget)
	v1.GET("/import-sessions/:id/export", h.ExportSession)
	v1.GET("/import-sessions/:id/activity", h.SessionActivity)
	v1.DELETE("/import-sessions/:id", h.DeleteSession)
}
