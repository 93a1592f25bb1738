package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"go-solver/internal/repository"
	"go-solver/internal/services"
	"go-solver/internal/solver"
)

// SolveHandler handles batch solving and solution query API requests
type SolveHandler struct {
	solveService *services.BatchSolveService
	solutionRepo repository.SolutionRepository
}

// NewSolveHandler creates a new SolveHandler instance
func NewSolveHandler(solveService *services.BatchSolveService, solutionRepo repository.SolutionRepository) *SolveHandler {
	return &SolveHandler{
		solveService: solveService,
		solutionRepo: solutionRepo,
	}
}

// SolveRequest is the solve trigger payload.
type SolveRequest struct {
	BatchID string `json:"batch_id" binding:"required"`
}

// SolveResponse is the submission record returned to the caller.
type SolveResponse struct {
	SolutionID     string           `json:"solution_id"`
	BatchID        string           `json:"batch_id"`
	Solver         string           `json:"solver"`
	CommitmentHash string           `json:"commitment_hash"`
	TotalSurplus   string           `json:"total_surplus"`
	Outcomes       []solver.Outcome `json:"outcomes"`
	Unresolved     []string         `json:"unresolved,omitempty"`
	SubmittedAt    int64            `json:"submitted_at"` // epoch milliseconds
	Warning        string           `json:"warning,omitempty"`
}

// SolveBatchHandler handles POST /api/solve
// Runs a full batch-solve attempt synchronously and returns the
// assembled solution record.
func (h *SolveHandler) SolveBatchHandler(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	solution, err := h.solveService.Solve(c.Request.Context(), req.BatchID)
	if err != nil && solution == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Batch solve failed",
			"details": err.Error(),
		})
		return
	}

	resp := SolveResponse{
		SolutionID:     solution.ID,
		BatchID:        solution.BatchID,
		Solver:         solution.Solver,
		CommitmentHash: solution.CommitmentHash,
		TotalSurplus:   solution.TotalSurplus,
		Outcomes:       solution.Outcomes,
		Unresolved:     solution.Unresolved,
		SubmittedAt:    time.Now().UnixMilli(),
	}
	if err != nil {
		// Assembly succeeded but registry submission did not; the
		// caller decides whether to resubmit.
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// GetSolutionHandler handles GET /api/solutions/:id
func (h *SolveHandler) GetSolutionHandler(c *gin.Context) {
	id := c.Param("id")

	solution, err := h.solutionRepo.GetByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Solution not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load solution",
		})
		return
	}

	c.JSON(http.StatusOK, solution)
}

// ListSolutionsHandler handles GET /api/solutions
func (h *SolveHandler) ListSolutionsHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	if batchID := c.Query("batch_id"); batchID != "" {
		solutions, err := h.solutionRepo.FindByBatch(c.Request.Context(), batchID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list solutions",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"solutions": solutions,
			"total":     len(solutions),
		})
		return
	}

	solutions, total, err := h.solutionRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list solutions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"solutions": solutions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
