package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/config"
	"github.com/phambaophuc/resizo/internal/http/handlers"
	"github.com/phambaophuc/resizo/internal/http/middleware"
	"github.com/phambaophuc/resizo/internal/http/routes"
	"github.com/phambaophuc/resizo/internal/logger"
	"github.com/phambaophuc/resizo/internal/models"
	"github.com/phambaophuc/resizo/internal/services/auth"
	"github.com/phambaophuc/resizo/internal/services/cache"
	"github.com/phambaophuc/resizo/internal/services/history"
	"github.com/phambaophuc/resizo/internal/services/processor"
	"github.com/phambaophuc/resizo/internal/services/ratelimit"
	"github.com/phambaophuc/resizo/internal/services/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	health := map[string]handlers.HealthChecker{
		"redis":    pingHealth(redisClient.Ping),
		"postgres": nil,
		"supabase": nil,
		"rabbitmq": nil,
	}

	// Initialize services
	deps := handlers.Dependencies{
		Processor: processor.NewImageProcessor(cfg.Processing.JPEGQuality),
		Validator: processor.NewValidator(cfg.Processing.MaxFileSize, cfg.Processing.StrictSignatures),
		Cache:     cache.NewResultCache(redisClient, cfg.Redis.CacheTTL),
		Health:    health,
	}

	if cfg.Database.URL != "" {
		db, err := history.Open(cfg.Database.URL)
		if err != nil {
			logger.Warn("Failed to initialize history database", zap.Error(err))
		} else {
			sqlDB, err := db.DB()
			if err == nil {
				defer sqlDB.Close()
				health["postgres"] = func(ctx context.Context) string {
					if err := sqlDB.PingContext(ctx); err != nil {
						return "unhealthy: " + err.Error()
					}
					return models.StatusHealthy
				}
			}

			repo := history.NewRepository(db)
			deps.History = repo
			deps.Recorder = history.NewDirectRecorder(repo)

			if cfg.RabbitMQ.URL != "" {
				queue, err := history.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.HistoryQueue, repo, logger)
				if err != nil {
					logger.Warn("Failed to initialize queue service", zap.Error(err))
					// Continue recording history directly
				} else if err := queue.StartWorker(workerCtx, 1); err != nil {
					logger.Warn("Failed to start history worker", zap.Error(err))
					queue.Close()
				} else {
					defer queue.Close()
					deps.Recorder = queue
					health["rabbitmq"] = func(context.Context) string { return queue.HealthCheck() }
				}
			}
		}
	}

	if cfg.Supabase.Configured() {
		store := storage.NewStorageService(cfg.Supabase, logger)
		deps.Storage = store
		health["supabase"] = store.HealthCheck
	}

	opts := routes.Options{
		Verifier:       auth.NewTokenVerifier(cfg.Auth.JWTSecret),
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Processing.MaxFileSize,
	}
	if cfg.RateLimit.Enabled {
		opts.Limiter = ratelimit.NewLimiter(redisClient, map[string]ratelimit.Rule{
			middleware.BucketResize: {Limit: cfg.RateLimit.ResizeLimit, Window: cfg.RateLimit.Window},
			middleware.BucketBulk:   {Limit: cfg.RateLimit.BulkLimit, Window: cfg.RateLimit.Window},
		})
	}

	// Initialize handlers
	imageHandler := handlers.NewImageHandler(deps, logger, cfg)

	router := routes.NewRouter(imageHandler, opts, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func pingHealth(ping func(ctx context.Context) *redis.StatusCmd) handlers.HealthChecker {
	return func(ctx context.Context) string {
		if err := ping(ctx).Err(); err != nil {
			return "unhealthy: " + err.Error()
		}
		return models.StatusHealthy
	}
}
