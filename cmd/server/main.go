package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/api"
	"github.com/bobby-s-dev/weather-lookup/internal/config"
	"github.com/bobby-s-dev/weather-lookup/internal/scheduler"
	"github.com/bobby-s-dev/weather-lookup/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Lookup Proxy")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	cache := newSuggestionCache(cfg, logger)
	proxy := services.NewProxy(cfg, cache, logger)

	// Cache maintenance
	maintenance := scheduler.NewScheduler(30*time.Second, logger)
	if err := maintenance.AddJob("prune-suggestion-cache", cfg.Cache.CleanupSchedule, func(context.Context) error {
		proxy.PruneCache()
		return nil
	}); err != nil {
		logger.Fatal("Failed to schedule cache maintenance", zap.Error(err))
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		JSONEncoder:  json.Marshal,
		ErrorHandler: api.ErrorHandler,
	})

	// Setup handlers and routes
	handler := api.NewHandler(proxy, maintenance, logger)
	api.SetupRoutes(app, handler, logger)

	maintenance.Start()

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maintenance.Stop(ctx)

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	if err := proxy.Close(); err != nil {
		logger.Warn("Failed to close suggestion cache", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// newSuggestionCache prefers Redis when REDIS_ADDR is set and falls back to
// the in-process cache if it cannot be reached.
func newSuggestionCache(cfg *config.Config, logger *zap.Logger) services.SuggestionCache {
	if cfg.Cache.RedisAddr != "" {
		cache, err := services.NewRedisSuggestionCache(
			cfg.Cache.RedisAddr,
			cfg.Cache.RedisPassword,
			cfg.Cache.RedisDB,
			cfg.Cache.Duration,
			logger,
		)
		if err == nil {
			return cache
		}
		logger.Warn("Redis unavailable, using in-memory suggestion cache", zap.Error(err))
	}
	return services.NewMemorySuggestionCache(cfg.Cache.Duration, cfg.Cache.MaxSize, nil, logger)
}
