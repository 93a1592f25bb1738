package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-solver/internal/clients"
	"go-solver/internal/events"
	"go-solver/internal/repository"
	"go-solver/internal/solver"
)

// BatchHandler handles batch ingestion and query API requests
type BatchHandler struct {
	batchRepo repository.BatchRepository
	nats      *clients.NATSClient
}

// NewBatchHandler creates a new BatchHandler instance
func NewBatchHandler(batchRepo repository.BatchRepository, nats *clients.NATSClient) *BatchHandler {
	return &BatchHandler{
		batchRepo: batchRepo,
		nats:      nats,
	}
}

// IngestBatchRequest is the batch ingestion payload. All asset amounts
// are decimal strings.
type IngestBatchRequest struct {
	BatchID string          `json:"batch_id" binding:"required"`
	Intents []solver.Intent `json:"intents" binding:"required"`
}

// IngestBatchHandler handles POST /api/batches
// Ingests a batch of intents and announces it on the event stream.
func (h *BatchHandler) IngestBatchHandler(c *gin.Context) {
	var req IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if len(req.Intents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch must contain at least one intent",
		})
		return
	}

	if err := h.batchRepo.CreateBatch(c.Request.Context(), req.BatchID, req.Intents); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to ingest batch",
			"details": err.Error(),
		})
		return
	}

	if h.nats != nil {
		event := events.BatchReadyEvent{
			BatchID:   req.BatchID,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := h.nats.Publish(events.SubjectBatchReady, event); err != nil {
			logrus.WithError(err).WithField("batch_id", req.BatchID).Warn("Failed to publish batch ready event")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"batch_id":     req.BatchID,
		"intent_count": len(req.Intents),
	})
}

// GetBatchHandler handles GET /api/batches/:id
func (h *BatchHandler) GetBatchHandler(c *gin.Context) {
	batchID := c.Param("id")

	batch, err := h.batchRepo.GetBatch(c.Request.Context(), batchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Batch not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load batch",
		})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// ListBatchesHandler handles GET /api/batches
func (h *BatchHandler) ListBatchesHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	batches, total, err := h.batchRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list batches",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches":   batches,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
