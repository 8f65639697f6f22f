package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/apperrors"
)

// ValidateContentType rejects uploads that are not multipart forms before
// anything reads the body.
func ValidateContentType() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost {
			ctx.Next()
			return
		}

		contentType := ctx.GetHeader("Content-Type")
		if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
			abortWithError(ctx, apperrors.ClientInput("Content-Type must be multipart/form-data."))
			return
		}

		ctx.Next()
	}
}
