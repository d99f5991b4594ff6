package httpHandler

import (
	"errors"
	"log/slog"
	"net/http"

	"shoplist-server/usecases"

	"github.com/gin-gonic/gin"
)

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind usecases.ErrorKind) int {
	switch kind {
	case usecases.KindInvalidInput, usecases.KindInvalidCredentials,
		usecases.KindDuplicateEmail, usecases.KindAlreadyCollaborator:
		return http.StatusBadRequest
	case usecases.KindUnauthorized:
		return http.StatusUnauthorized
	case usecases.KindForbidden:
		return http.StatusForbidden
	case usecases.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Internal causes are logged, not
// returned.
func respondError(c *gin.Context, err error) {
	var ue *usecases.Error
	if errors.As(err, &ue) && ue.Kind != usecases.KindInternal {
		c.AbortWithStatusJSON(StatusFor(ue.Kind), gin.H{"error": ue.Message})
		return
	}
	slog.Error("request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
