package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"go.uber.org/zap"
)

// ErrorHandler handles panics and errors
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("method", ctx.Request.Method),
			zap.String("request_id", RequestID(ctx)),
		)

		abortWithError(ctx, apperrors.Processing("Internal server error", nil))
	})
}
