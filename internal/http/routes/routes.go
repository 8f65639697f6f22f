package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/http/handlers"
	"github.com/phambaophuc/resizo/internal/http/middleware"
	"go.uber.org/zap"
)

type Router struct {
	imageHandler   *handlers.ImageHandler
	limiter        middleware.RateLimiter
	verifier       middleware.TokenVerifier
	requestTimeout time.Duration
	maxUploadBytes int64
	logger         *zap.Logger
}

// Options carries the optional collaborators of the router. A nil Limiter
// disables rate limiting.
type Options struct {
	Limiter        middleware.RateLimiter
	Verifier       middleware.TokenVerifier
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

func NewRouter(
	imageHandler *handlers.ImageHandler,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		imageHandler:   imageHandler,
		limiter:        opts.Limiter,
		verifier:       opts.Verifier,
		requestTimeout: opts.RequestTimeout,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()
	if r.maxUploadBytes > 0 {
		router.MaxMultipartMemory = r.maxUploadBytes
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Timeout(r.requestTimeout))

	resize := r.imageRoute(middleware.BucketResize, r.imageHandler.ResizeImage)
	bulk := r.imageRoute(middleware.BucketBulk, r.imageHandler.BulkResize)

	router.POST("/resize", resize...)
	router.POST("/resize-bulk", bulk...)

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.imageHandler.HealthCheck)
		v1.GET("/history",
			middleware.OptionalAuth(r.verifier),
			middleware.RequireAuth(),
			r.imageHandler.History)

		images := v1.Group("/images")
		{
			images.POST("/resize", resize...)
			images.POST("/bulk/resize", bulk...)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Resizo is running",
		})
	})

	return router
}

// imageRoute guards an upload endpoint: the content type and the rate limit
// are checked before the body is read. Every request that reaches the limiter
// is counted, including ones auth then rejects.
func (r *Router) imageRoute(bucket string, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{middleware.ValidateContentType()}
	if r.limiter != nil {
		chain = append(chain, middleware.RateLimit(r.limiter, bucket, r.logger))
	}
	return append(chain, middleware.OptionalAuth(r.verifier), handler)
}
