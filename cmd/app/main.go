package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rankedtasks/internal/config"
	"rankedtasks/internal/db"
	httpServer "rankedtasks/internal/http"
	"rankedtasks/internal/http/handlers"
	"rankedtasks/internal/http/middleware"
	"rankedtasks/internal/logger"
	"rankedtasks/internal/repository"
	"rankedtasks/internal/service"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	if middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB) {
		logger.Info("redis rate limiter enabled", "addr", cfg.RedisAddr)
	}
	defer middleware.CloseRedisRateLimiter()

	tasks := service.NewTaskServiceWithConfig(store, service.TaskServiceConfig{
		ConflictRetries: cfg.ConflictRetries,
		DefaultPageSize: cfg.DefaultPageSize,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	httpServer.RegisterRoutes(r,
		handlers.NewHandler(tasks),
		handlers.NewHealthHandler(store, cfg.StorageDriver, version),
		httpServer.RouteConfig{
			RateLimit:      cfg.APIRateLimit,
			RateWindow:     cfg.APIRateWindow,
			RebalanceLimit: cfg.RebalanceRateLimit,
			WebDir:         cfg.WebDir,
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           httpServer.WrapHandler(r, logger.Get(), cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.StorageDriver, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.TaskStore, func()) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory task store; data is lost on exit")
		return repository.NewMemoryTaskRepository(), func() {}
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}

	if cfg.MigrateOnStart {
		if _, err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			logger.Fatal("failed to apply migrations", "error", err)
		}
	}

	return repository.NewTaskRepository(pool), pool.Close
}
