package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// respondError translates an application error into its HTTP shape. Anything
// outside the AppError taxonomy is reported as a plain 500 without leaking
// internals.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.GetAppError(err); ok {
		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		c.JSON(appErr.StatusCode, body)
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    apperrors.ErrCodeInternal,
		"message": "internal server error",
	})
}
