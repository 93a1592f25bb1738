package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BlobItem is one artifact handed to the bundler.
type BlobItem struct {
	Path string
	Data []byte
}

// bundleStore is the storage surface the bundler needs: individual
// puts plus combined quilt puts.
type bundleStore interface {
	Put(ctx context.Context, path string, data []byte, retention time.Duration) (string, error)
	PutBundle(ctx context.Context, bundlePath string, items []BlobItem, retention time.Duration) (string, error)
}

// Bundler persists artifact sets, consulting the batching advisor to
// decide between individual objects and one combined quilt.
type Bundler struct {
	store   bundleStore
	advisor *BatchingAdvisor
	logger  *logrus.Logger
}

// NewBundler creates a new Bundler instance
func NewBundler(store bundleStore, advisor *BatchingAdvisor, logger *logrus.Logger) *Bundler {
	return &Bundler{
		store:   store,
		advisor: advisor,
		logger:  logger,
	}
}

// PutAll stores the given artifacts, bundled or not per the advisor's
// decision, and returns that decision alongside any storage error.
func (b *Bundler) PutAll(ctx context.Context, items []BlobItem, retention time.Duration) (BatchingDecision, error) {
	decision := b.advisor.Advise(len(items), averageSize(items))

	b.logger.WithFields(logrus.Fields{
		"blob_count":      decision.BlobCount,
		"avg_blob_size":   decision.AverageBlobSize,
		"recommended":     decision.Recommended,
		"savings_percent": decision.SavingsPercent,
		"reason":          decision.Reason,
	}).Info("Storage batching decision")

	if !decision.Recommended {
		for _, item := range items {
			if _, err := b.store.Put(ctx, item.Path, item.Data, retention); err != nil {
				return decision, err
			}
		}
		return decision, nil
	}

	bundlePath := fmt.Sprintf("bundles/%s.quilt", uuid.New().String())
	if _, err := b.store.PutBundle(ctx, bundlePath, items, retention); err != nil {
		return decision, err
	}
	return decision, nil
}

// averageSize returns the mean payload size, rounded down.
func averageSize(items []BlobItem) int64 {
	if len(items) == 0 {
		return 0
	}
	var total int64
	for _, item := range items {
		total += int64(len(item.Data))
	}
	return total / int64(len(items))
}

// quilt is the canonical bundle encoding: a JSON document mapping
// member paths to payloads. Payload bytes are base64 inside the JSON.
type quilt struct {
	Version int         `json:"version"`
	Entries []quiltItem `json:"entries"`
}

type quiltItem struct {
	Path string `json:"path"`
	Data []byte `json:"data"`
}

// encodeQuilt serializes items into a single bundle payload.
func encodeQuilt(items []BlobItem) ([]byte, error) {
	q := quilt{Version: 1, Entries: make([]quiltItem, 0, len(items))}
	for _, item := range items {
		q.Entries = append(q.Entries, quiltItem{Path: item.Path, Data: item.Data})
	}
	return json.Marshal(q)
}

// extractFromQuilt pulls one member's payload out of an encoded bundle.
func extractFromQuilt(encoded []byte, path string) ([]byte, error) {
	var q quilt
	if err := json.Unmarshal(encoded, &q); err != nil {
		return nil, fmt.Errorf("invalid quilt encoding: %w", err)
	}
	for _, entry := range q.Entries {
		if entry.Path == path {
			return entry.Data, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrBlobNotFound)
}
