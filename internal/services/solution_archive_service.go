package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"go-solver/internal/metrics"
	"go-solver/internal/solver"
	"go-solver/internal/storage"
)

// SolutionArchiveService writes the full solution document and one
// artifact per outcome to blob storage, letting the batching advisor
// decide whether the set is worth bundling into a single quilt.
type SolutionArchiveService struct {
	bundler   *storage.Bundler
	retention time.Duration
}

// NewSolutionArchiveService creates a new SolutionArchiveService
// instance. A retention of zero days keeps artifacts forever.
func NewSolutionArchiveService(bundler *storage.Bundler, retentionDays int) *SolutionArchiveService {
	return &SolutionArchiveService{
		bundler:   bundler,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Archive persists the solution's artifact set under
// solutions/<solution-id>/. Outcome artifacts are small and numerous,
// so batches with many intents typically end up bundled.
func (s *SolutionArchiveService) Archive(ctx context.Context, solution *solver.Solution) error {
	doc, err := json.Marshal(solution)
	if err != nil {
		return fmt.Errorf("failed to encode solution %s for archiving: %w", solution.ID, err)
	}

	items := make([]storage.BlobItem, 0, len(solution.Outcomes)+1)
	items = append(items, storage.BlobItem{
		Path: fmt.Sprintf("solutions/%s/solution.json", solution.ID),
		Data: doc,
	})
	for i := range solution.Outcomes {
		outcome, err := json.Marshal(&solution.Outcomes[i])
		if err != nil {
			return fmt.Errorf("failed to encode outcome %s for archiving: %w",
				solution.Outcomes[i].IntentID, err)
		}
		items = append(items, storage.BlobItem{
			Path: fmt.Sprintf("solutions/%s/outcomes/%s.json", solution.ID, solution.Outcomes[i].IntentID),
			Data: outcome,
		})
	}

	decision, err := s.bundler.PutAll(ctx, items, s.retention)
	if err != nil {
		return fmt.Errorf("failed to archive solution %s: %w", solution.ID, err)
	}

	placement := "standalone"
	if decision.Recommended {
		placement = "bundled"
	}
	metrics.BlobsStored.WithLabelValues(placement).Add(float64(len(items)))

	logrus.WithFields(logrus.Fields{
		"solution_id": solution.ID,
		"artifacts":   len(items),
		"bundled":     decision.Recommended,
	}).Info("Solution artifacts archived")
	return nil
}
