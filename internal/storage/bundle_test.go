package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore records bundler calls in memory.
type memStore struct {
	puts    map[string][]byte
	bundles map[string][]BlobItem
}

func newMemStore() *memStore {
	return &memStore{
		puts:    make(map[string][]byte),
		bundles: make(map[string][]BlobItem),
	}
}

func (m *memStore) Put(ctx context.Context, path string, data []byte, retention time.Duration) (string, error) {
	m.puts[path] = data
	return path, nil
}

func (m *memStore) PutBundle(ctx context.Context, bundlePath string, items []BlobItem, retention time.Duration) (string, error) {
	m.bundles[bundlePath] = items
	return bundlePath, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func smallItems(n int) []BlobItem {
	items := make([]BlobItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, BlobItem{
			Path: fmt.Sprintf("artifacts/%d.json", i),
			Data: make([]byte, 1024),
		})
	}
	return items
}

func TestBundlerBundlesSmallArtifacts(t *testing.T) {
	store := newMemStore()
	bundler := NewBundler(store, NewBatchingAdvisor(AdvisorConfig{}), testLogger())

	decision, err := bundler.PutAll(context.Background(), smallItems(50), 0)
	require.NoError(t, err)
	assert.True(t, decision.Recommended)

	assert.Empty(t, store.puts)
	require.Len(t, store.bundles, 1)
	for _, items := range store.bundles {
		assert.Len(t, items, 50)
	}
}

func TestBundlerStoresIndividuallyWhenNotRecommended(t *testing.T) {
	store := newMemStore()
	bundler := NewBundler(store, NewBatchingAdvisor(AdvisorConfig{}), testLogger())

	decision, err := bundler.PutAll(context.Background(), smallItems(1), 0)
	require.NoError(t, err)
	assert.False(t, decision.Recommended)

	assert.Len(t, store.puts, 1)
	assert.Empty(t, store.bundles)
}

func TestQuiltRoundTrip(t *testing.T) {
	items := []BlobItem{
		{Path: "a.json", Data: []byte(`{"a":1}`)},
		{Path: "b.bin", Data: []byte{0x00, 0x01, 0x02}},
		{Path: "empty", Data: nil},
	}

	encoded, err := encodeQuilt(items)
	require.NoError(t, err)

	for _, item := range items {
		data, err := extractFromQuilt(encoded, item.Path)
		require.NoError(t, err)
		assert.Equal(t, item.Data, data)
	}

	_, err = extractFromQuilt(encoded, "missing")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestAverageSize(t *testing.T) {
	assert.Equal(t, int64(0), averageSize(nil))
	items := []BlobItem{
		{Path: "a", Data: make([]byte, 100)},
		{Path: "b", Data: make([]byte, 200)},
	}
	assert.Equal(t, int64(150), averageSize(items))
}
