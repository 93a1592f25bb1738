package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-solver/internal/solver"
	"go-solver/internal/storage"
)

type recordingStore struct {
	puts    map[string][]byte
	bundles map[string][]storage.BlobItem
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		puts:    make(map[string][]byte),
		bundles: make(map[string][]storage.BlobItem),
	}
}

func (s *recordingStore) Put(ctx context.Context, path string, data []byte, retention time.Duration) (string, error) {
	s.puts[path] = data
	return path, nil
}

func (s *recordingStore) PutBundle(ctx context.Context, bundlePath string, items []storage.BlobItem, retention time.Duration) (string, error) {
	s.bundles[bundlePath] = items
	return bundlePath, nil
}

func archiveTestSolution(outcomes int) *solver.Solution {
	solution := &solver.Solution{
		ID:           "sol-1",
		BatchID:      "batch-1",
		Solver:       "0xsolver",
		TotalSurplus: "0",
	}
	for i := 0; i < outcomes; i++ {
		solution.Outcomes = append(solution.Outcomes, solver.Outcome{
			IntentID: fmt.Sprintf("intent-%d", i),
			Outputs:  []solver.AssetAmount{{Asset: "WETH", Amount: "1"}},
			Surplus:  "0",
			Path:     solver.PathP2P,
		})
	}
	return solution
}

func TestArchiveSmallSolutionStoredIndividually(t *testing.T) {
	store := newRecordingStore()
	// Two artifacts amortize the base cost by about half; with the
	// threshold raised above that the advisor keeps them standalone.
	advisor := storage.NewBatchingAdvisor(storage.AdvisorConfig{SavingsThreshold: 60})
	bundler := storage.NewBundler(store, advisor, logrus.New())
	service := NewSolutionArchiveService(bundler, 0)

	err := service.Archive(context.Background(), archiveTestSolution(1))
	require.NoError(t, err)

	assert.Empty(t, store.bundles)
	require.Len(t, store.puts, 2)

	doc, ok := store.puts["solutions/sol-1/solution.json"]
	require.True(t, ok)
	var archived solver.Solution
	require.NoError(t, json.Unmarshal(doc, &archived))
	assert.Equal(t, "batch-1", archived.BatchID)

	_, ok = store.puts["solutions/sol-1/outcomes/intent-0.json"]
	assert.True(t, ok)
}

func TestArchiveLargeSolutionBundled(t *testing.T) {
	store := newRecordingStore()
	bundler := storage.NewBundler(store, storage.NewBatchingAdvisor(storage.AdvisorConfig{}), logrus.New())
	service := NewSolutionArchiveService(bundler, 7)

	err := service.Archive(context.Background(), archiveTestSolution(50))
	require.NoError(t, err)

	assert.Empty(t, store.puts)
	require.Len(t, store.bundles, 1)
	for _, items := range store.bundles {
		assert.Len(t, items, 51)
	}
}
