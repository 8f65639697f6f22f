package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/resizo/internal/apperrors"
	"github.com/phambaophuc/resizo/internal/models"
)

const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(ctx *gin.Context) string {
	return ctx.GetString(UserIDKey)
}

// RequestID returns the id assigned by the RequestID middleware.
func RequestID(ctx *gin.Context) string {
	return ctx.GetString(RequestIDKey)
}

// abortWithError renders err with the status of its kind. Details, when
// present, become the response data.
func abortWithError(ctx *gin.Context, err *apperrors.AppError) {
	resp := models.APIResponse{
		Success: false,
		Error:   err.Error(),
	}
	if len(err.Details) > 0 {
		resp.Data = err.Details
	}
	ctx.AbortWithStatusJSON(apperrors.HTTPStatus(err), resp)
}
