package http

import (
	"path/filepath"
	"time"

	"rankedtasks/internal/http/handlers"
	"rankedtasks/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig holds the per-route settings RegisterRoutes needs.
type RouteConfig struct {
	RateLimit  int
	RateWindow time.Duration
	// RebalanceLimit caps rebalance calls per client within RateWindow.
	RebalanceLimit int
	// WebDir, when set, is served as the browser client.
	WebDir string
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, cfg RouteConfig) {
	r.Use(middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := middleware.RateLimit(cfg.RateLimit, cfg.RateWindow)
	rebalance := middleware.OperationRateLimit("rebalance", cfg.RebalanceLimit, cfg.RateWindow)

	v1 := r.Group("/api/v1")
	v1.Use(limit)
	registerAPIRoutes(v1, h, rebalance)

	api := r.Group("/api")
	api.Use(limit)
	registerAPIRoutes(api, h, rebalance)

	if cfg.WebDir != "" {
		r.Static("/assets", filepath.Join(cfg.WebDir, "assets"))
		r.NoRoute(func(c *gin.Context) {
			c.File(filepath.Join(cfg.WebDir, "index.html"))
		})
	}
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, rebalanceLimit gin.HandlerFunc) {
	api.GET("/tasks", h.ListTasks)
	api.POST("/tasks", h.CreateTask)
	api.POST("/tasks/update-title", h.UpdateTitle)
	api.POST("/tasks/move", h.MoveTask)
	api.POST("/tasks/rebalance", rebalanceLimit, h.RebalanceTasks)
}
