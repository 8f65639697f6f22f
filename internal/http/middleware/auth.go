package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/services/auth"
)

type TokenVerifier interface {
	Enabled() bool
	Verify(token string) (*auth.Claims, error)
}

// OptionalAuth identifies the caller when a bearer token is present.
// Requests without an Authorization header continue anonymously.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" || verifier == nil || !verifier.Enabled() {
			ctx.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abortWithError(ctx, apperrors.Unauthorized("Invalid authorization header."))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			abortWithError(ctx, apperrors.Unauthorized("Invalid or expired token."))
			return
		}

		ctx.Set(UserIDKey, claims.UserID())
		ctx.Next()
	}
}

// RequireAuth rejects requests OptionalAuth left anonymous.
func RequireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if UserID(ctx) == "" {
			abortWithError(ctx, apperrors.Unauthorized("Authentication required."))
			return
		}
		ctx.Next()
	}
}
