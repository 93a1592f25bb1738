package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go-solver/internal/models"
)

// SolutionRepository defines the interface for solution data access
type SolutionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, solution *models.SolutionRecord) error
	GetByID(ctx context.Context, id string) (*models.SolutionRecord, error)
	GetByCommitmentHash(ctx context.Context, commitmentHash string) (*models.SolutionRecord, error)

	// Query methods
	FindByBatch(ctx context.Context, batchID string) ([]*models.SolutionRecord, error)
	List(ctx context.Context, page, pageSize int) ([]*models.SolutionRecord, int64, error)

	// Status updates
	MarkSubmitted(ctx context.Context, id, txHash string) error
	MarkRejected(ctx context.Context, id string) error
}

// solutionRepository implements SolutionRepository
type solutionRepository struct {
	db *gorm.DB
}

// NewSolutionRepository creates a new SolutionRepository instance
func NewSolutionRepository(db *gorm.DB) SolutionRepository {
	return &solutionRepository{db: db}
}

// Create persists a solution with its outcome rows in one transaction.
func (r *solutionRepository) Create(ctx context.Context, solution *models.SolutionRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(solution).Error
	})
}

// GetByID retrieves a solution by ID, outcomes included in their
// accumulation order.
func (r *solutionRepository) GetByID(ctx context.Context, id string) (*models.SolutionRecord, error) {
	var solution models.SolutionRecord
	err := r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&solution).Error
	if err != nil {
		return nil, err
	}
	return &solution, nil
}

// GetByCommitmentHash retrieves a solution by commitment hash
func (r *solutionRepository) GetByCommitmentHash(ctx context.Context, commitmentHash string) (*models.SolutionRecord, error) {
	var solution models.SolutionRecord
	err := r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("commitment_hash = ?", commitmentHash).
		First(&solution).Error
	if err != nil {
		return nil, err
	}
	return &solution, nil
}

// FindByBatch finds solutions by batch ID
func (r *solutionRepository) FindByBatch(ctx context.Context, batchID string) ([]*models.SolutionRecord, error) {
	var solutions []*models.SolutionRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC").
		Find(&solutions).Error
	return solutions, err
}

// List returns solutions in reverse creation order, paged.
func (r *solutionRepository) List(ctx context.Context, page, pageSize int) ([]*models.SolutionRecord, int64, error) {
	var solutions []*models.SolutionRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.SolutionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&solutions).Error
	return solutions, total, err
}

// MarkSubmitted records registry acceptance of a solution.
func (r *solutionRepository) MarkSubmitted(ctx context.Context, id, txHash string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.SolutionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.SolutionStatusSubmitted,
			"tx_hash":      txHash,
			"submitted_at": &now,
		}).Error
}

// MarkRejected records a failed registry submission.
func (r *solutionRepository) MarkRejected(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.SolutionRecord{}).
		Where("id = ?", id).
		Update("status", models.SolutionStatusRejected).Error
}
