package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
	"go.uber.org/zap"
)

const (
	BucketResize = "resize"
	BucketBulk   = "resize-bulk"

	fallbackClientID = "127.0.0.1"
)

type RateLimiter interface {
	Allow(ctx context.Context, bucket, identifier string) (models.RateLimitDecision, error)
}

// ClientIdentifier is the first X-Forwarded-For entry, or 127.0.0.1.
func ClientIdentifier(ctx *gin.Context) string {
	forwarded := ctx.GetHeader("X-Forwarded-For")
	if forwarded == "" {
		return fallbackClientID
	}
	first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
	if first == "" {
		return fallbackClientID
	}
	return first
}

// RateLimit charges one request against bucket for the calling client and
// aborts with 429 once the quota is spent.
func RateLimit(limiter RateLimiter, bucket string, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identifier := ClientIdentifier(ctx)

		decision, err := limiter.Allow(ctx.Request.Context(), bucket, identifier)
		if err != nil {
			logger.Error("Rate limit check failed",
				zap.String("bucket", bucket),
				zap.String("client", identifier),
				zap.String("request_id", RequestID(ctx)),
				zap.Error(err))
			abortWithError(ctx, apperrors.Processing("An internal server error occurred while checking the rate limit.", err))
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		ctx.Header("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("bucket", bucket),
				zap.String("client", identifier))
			abortWithError(ctx, apperrors.RateLimited("Too many requests. Please try again later.").
				WithDetail("limit", decision.Limit).
				WithDetail("remaining", decision.Remaining))
			return
		}

		ctx.Next()
	}
}
