package httpHandler

import (
	"strings"

	"shoplist-server/usecases"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated user id on the context.
func RequireAuth(auth *usecases.AuthUseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.VerifyToken(BearerToken(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id set by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
