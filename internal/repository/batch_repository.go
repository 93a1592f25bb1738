package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"go-solver/internal/models"
	"go-solver/internal/solver"
)

// BatchRepository defines the interface for batch and intent data access
type BatchRepository interface {
	// Ingestion
	CreateBatch(ctx context.Context, batchID string, intents []solver.Intent) error

	// Query methods
	GetBatch(ctx context.Context, batchID string) (*models.BatchRecord, error)
	FetchIntents(ctx context.Context, batchID string) ([]solver.Intent, error)
	List(ctx context.Context, page, pageSize int) ([]*models.BatchRecord, int64, error)

	// Status updates
	UpdateStatus(ctx context.Context, batchID string, status models.BatchStatus) error
}

// batchRepository implements BatchRepository
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository instance
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// CreateBatch validates and persists a batch with its intents in one
// transaction. Intent positions record batch order, which the matching
// engine is sensitive to.
func (r *batchRepository) CreateBatch(ctx context.Context, batchID string, intents []solver.Intent) error {
	records := make([]*models.IntentRecord, 0, len(intents))
	for i := range intents {
		if err := solver.ValidateIntent(&intents[i]); err != nil {
			return err
		}
		record, err := models.FromIntent(batchID, i, &intents[i])
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch := models.BatchRecord{
			ID:          batchID,
			Status:      models.BatchStatusPending,
			IntentCount: len(records),
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to create batch %s: %w", batchID, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("failed to create intents for batch %s: %w", batchID, err)
		}
		return nil
	})
}

// GetBatch retrieves a batch by ID
func (r *batchRepository) GetBatch(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	var batch models.BatchRecord
	err := r.db.WithContext(ctx).Where("id = ?", batchID).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FetchIntents loads the batch's intents in their ingestion order.
func (r *batchRepository) FetchIntents(ctx context.Context, batchID string) ([]solver.Intent, error) {
	var records []models.IntentRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch intents for batch %s: %w", batchID, err)
	}

	intents := make([]solver.Intent, 0, len(records))
	for i := range records {
		intent, err := records[i].ToIntent()
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// List returns batches in reverse creation order, paged.
func (r *batchRepository) List(ctx context.Context, page, pageSize int) ([]*models.BatchRecord, int64, error) {
	var batches []*models.BatchRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.BatchRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&batches).Error
	return batches, total, err
}

// UpdateStatus updates the lifecycle status of a batch
func (r *batchRepository) UpdateStatus(ctx context.Context, batchID string, status models.BatchStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.BatchRecord{}).
		Where("id = ?", batchID).
		Update("status", status).Error
}
