package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/proof-of-reserves/internal/storage"
)

const (
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// AttemptHandler serves the verification audit log
type AttemptHandler struct {
	attempts *storage.AttemptStore
}

// NewAttemptHandler creates a new AttemptHandler
func NewAttemptHandler(attempts *storage.AttemptStore) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// GetRecent returns the most recent verification attempts
// GET /attempts/recent?limit=50
func (h *AttemptHandler) GetRecent(c *gin.Context) {
	limit := defaultAttemptLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		if n > maxAttemptLimit {
			n = maxAttemptLimit
		}
		limit = n
	}

	attempts, err := h.attempts.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(attempts),
		"attempts": attempts,
	})
}
