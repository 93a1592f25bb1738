package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"go-solver/internal/models"
)

// ErrBlobNotFound is returned by Get for unknown paths.
var ErrBlobNotFound = errors.New("blob not found")

// ObjectStore is the storage collaborator consumed by the solver
// service. Put returns the identifier of the stored object; a zero
// retention means the blob never expires.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, retention time.Duration) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
}

// DBObjectStore is a gorm-backed ObjectStore. Bundles are stored as a
// single row holding the encoded quilt plus one index row per member,
// so Get resolves paths transparently whether or not a blob was
// bundled.
type DBObjectStore struct {
	db *gorm.DB
}

// NewDBObjectStore creates a new DBObjectStore instance
func NewDBObjectStore(db *gorm.DB) *DBObjectStore {
	return &DBObjectStore{db: db}
}

// Put stores a standalone blob.
func (s *DBObjectStore) Put(ctx context.Context, path string, data []byte, retention time.Duration) (string, error) {
	blob := models.BlobObject{
		Path: path,
		Data: data,
		Size: int64(len(data)),
	}
	if retention > 0 {
		expires := time.Now().UTC().Add(retention)
		blob.ExpiresAt = &expires
	}
	if err := s.db.WithContext(ctx).Create(&blob).Error; err != nil {
		return "", fmt.Errorf("failed to store blob %s: %w", path, err)
	}
	return path, nil
}

// Get retrieves a blob by path. Members of a bundle are extracted from
// their bundle object.
func (s *DBObjectStore) Get(ctx context.Context, path string) ([]byte, error) {
	var blob models.BlobObject
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", path, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %s: %w", path, err)
	}

	if blob.BundlePath == "" {
		return blob.Data, nil
	}

	// Member row: the payload lives inside the bundle object.
	var bundle models.BlobObject
	err = s.db.WithContext(ctx).Where("path = ?", blob.BundlePath).First(&bundle).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle %s for blob %s: %w", blob.BundlePath, path, err)
	}
	return extractFromQuilt(bundle.Data, path)
}

// PutBundle stores many blobs as one combined quilt object and records
// an index row per member. Returns the bundle path.
func (s *DBObjectStore) PutBundle(ctx context.Context, bundlePath string, items []BlobItem, retention time.Duration) (string, error) {
	encoded, err := encodeQuilt(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle %s: %w", bundlePath, err)
	}

	var expiresAt *time.Time
	if retention > 0 {
		expires := time.Now().UTC().Add(retention)
		expiresAt = &expires
	}

	rows := make([]models.BlobObject, 0, len(items)+1)
	rows = append(rows, models.BlobObject{
		Path:      bundlePath,
		Data:      encoded,
		Size:      int64(len(encoded)),
		ExpiresAt: expiresAt,
	})
	for _, item := range items {
		rows = append(rows, models.BlobObject{
			Path:       item.Path,
			Size:       int64(len(item.Data)),
			BundlePath: bundlePath,
			ExpiresAt:  expiresAt,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to store bundle %s: %w", bundlePath, err)
	}
	return bundlePath, nil
}

// PurgeExpired deletes blobs whose retention has elapsed. Returns the
// number of rows removed.
func (s *DBObjectStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now().UTC()).
		Delete(&models.BlobObject{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired blobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
