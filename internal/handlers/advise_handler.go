package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-solver/internal/metrics"
	"go-solver/internal/storage"
)

// AdviseHandler handles storage batching advice API requests
type AdviseHandler struct {
	advisor *storage.BatchingAdvisor
}

// NewAdviseHandler creates a new AdviseHandler instance
func NewAdviseHandler(advisor *storage.BatchingAdvisor) *AdviseHandler {
	return &AdviseHandler{advisor: advisor}
}

// AdviseRequest is the batching advice payload.
type AdviseRequest struct {
	BlobCount       int   `json:"blob_count"`
	AverageBlobSize int64 `json:"average_blob_size"`
}

// AdviseBatchingHandler handles POST /api/storage/advise
// Returns the pure cost-model recommendation; no storage I/O happens
// here.
func (h *AdviseHandler) AdviseBatchingHandler(c *gin.Context) {
	var req AdviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.BlobCount < 0 || req.AverageBlobSize < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "blob_count and average_blob_size must be non-negative",
		})
		return
	}

	decision := h.advisor.Advise(req.BlobCount, req.AverageBlobSize)
	metrics.BatchingDecisions.WithLabelValues(strconv.FormatBool(decision.Recommended)).Inc()

	c.JSON(http.StatusOK, decision)
}
