package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/proof-of-reserves/internal/models"
	"github.com/thanhnp/proof-of-reserves/internal/storage"
	"github.com/thanhnp/proof-of-reserves/internal/verifier"
)

// ProofHandler handles proof-of-reserves verification requests
type ProofHandler struct {
	service  *verifier.Service
	attempts *storage.AttemptStore
}

// NewProofHandler creates a new ProofHandler
func NewProofHandler(service *verifier.Service, attempts *storage.AttemptStore) *ProofHandler {
	return &ProofHandler{service: service, attempts: attempts}
}

// Check verifies one proof of reserves
// POST /proof
func (h *ProofHandler) Check(c *gin.Context) {
	var req models.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	network, spendable, err := h.service.Verify(c.Request.Context(), &req)

	attempt := &models.Attempt{
		Timestamp:    time.Now().UTC(),
		Network:      string(network),
		AddressCount: len(req.Addresses),
		Spendable:    spendable,
	}
	if err != nil {
		attempt.Outcome = string(models.FailureKindOf(err))
	} else {
		attempt.Outcome = "Spendable"
	}
	if saveErr := h.attempts.Save(attempt); saveErr != nil {
		log.Printf("[API] Failed to record verification attempt: %v", saveErr)
	}

	// Verification outcomes are always 200; the payload carries the
	// result or the classified failure.
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"spendable": spendable})
}
