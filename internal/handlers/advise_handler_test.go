package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-solver/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adviseRequest(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	handler := NewAdviseHandler(storage.NewBatchingAdvisor(storage.AdvisorConfig{}))
	router.POST("/api/storage/advise", handler.AdviseBatchingHandler)

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/storage/advise", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAdviseBatchingRecommended(t *testing.T) {
	recorder := adviseRequest(t, AdviseRequest{BlobCount: 100, AverageBlobSize: 4096})
	require.Equal(t, http.StatusOK, recorder.Code)

	var decision storage.BatchingDecision
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decision))
	assert.True(t, decision.Recommended)
	assert.Equal(t, 100, decision.BlobCount)
}

func TestAdviseBatchingZeroCount(t *testing.T) {
	// A zero count is a valid question with a definite answer, not a
	// binding error.
	recorder := adviseRequest(t, AdviseRequest{BlobCount: 0, AverageBlobSize: 4096})
	require.Equal(t, http.StatusOK, recorder.Code)

	var decision storage.BatchingDecision
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decision))
	assert.False(t, decision.Recommended)
	assert.Equal(t, "no batching benefit", decision.Reason)
}

func TestAdviseBatchingNegativeCount(t *testing.T) {
	recorder := adviseRequest(t, AdviseRequest{BlobCount: -1, AverageBlobSize: 4096})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAdviseBatchingMalformedBody(t *testing.T) {
	recorder := adviseRequest(t, "not an object")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
