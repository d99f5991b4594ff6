package httpHandler

import (
	"log/slog"
	"net/http"
	"strings"

	"shoplist-server/services"

	"github.com/gin-gonic/gin"
)

type SuggestHandler struct {
	suggester services.Suggester
}

func NewSuggestHandler(suggester services.Suggester) *SuggestHandler {
	return &SuggestHandler{suggester: suggester}
}

type suggestRequest struct {
	Query string `json:"query"`
}

// Suggest handles POST /api/ai-suggest
func (h *SuggestHandler) Suggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query cannot be empty"})
		return
	}

	suggestions, err := h.suggester.Suggest(c.Request.Context(), query)
	if err != nil {
		slog.Error("suggestion failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
