package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-solver/internal/config"
	"go-solver/internal/solver"
)

func testIntent() solver.Intent {
	return solver.Intent{
		ID:       "intent-1",
		Owner:    "0xowner",
		Category: solver.CategorySwap,
		Input:    solver.AssetAmount{Asset: "USDC", Amount: "1000"},
		Outputs:  []solver.OutputSpec{{Asset: "WETH"}},
	}
}

func venueClientFor(server *httptest.Server) *VenueClient {
	return NewVenueClient(&config.VenueConfig{
		ID:      "mock-venue",
		BaseURL: server.URL,
		Timeout: 5,
	})
}

func TestVenueClientRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/route", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var request VenueRouteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, "intent-1", request.IntentID)
		assert.Equal(t, "USDC", request.InputAsset)
		assert.Equal(t, "1000", request.InputAmount)

		json.NewEncoder(w).Encode(VenueRouteResponse{
			IntentID: request.IntentID,
			Fills:    []solver.AssetAmount{{Asset: "WETH", Amount: "0.5"}},
			Surplus:  "0.01",
		})
	}))
	defer server.Close()

	outcome, err := venueClientFor(server).Route(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, "intent-1", outcome.IntentID)
	assert.Equal(t, "mock-venue", outcome.Path)
	assert.Equal(t, "0.01", outcome.Surplus)
	require.Len(t, outcome.Outputs, 1)
	assert.Equal(t, "0.5", outcome.Outputs[0].Amount)
}

func TestVenueClientDefaultsSurplus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VenueRouteResponse{
			IntentID: "intent-1",
			Fills:    []solver.AssetAmount{{Asset: "WETH", Amount: "0.5"}},
		})
	}))
	defer server.Close()

	outcome, err := venueClientFor(server).Route(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, "0", outcome.Surplus)
}

func TestVenueClientInvalidFillAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VenueRouteResponse{
			IntentID: "intent-1",
			Fills:    []solver.AssetAmount{{Asset: "WETH", Amount: "not-a-number"}},
			Surplus:  "0",
		})
	}))
	defer server.Close()

	// Fill amounts are rejected when they do not parse, with or without
	// a minimum-output constraint on the intent.
	_, err := venueClientFor(server).Route(context.Background(), testIntent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fill amount")
}

func TestVenueClientMinOutputViolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VenueRouteResponse{
			IntentID: "intent-1",
			Fills:    []solver.AssetAmount{{Asset: "WETH", Amount: "0.4"}},
		})
	}))
	defer server.Close()

	intent := testIntent()
	intent.Constraints = &solver.Constraints{
		MinOutputs: map[string]string{"WETH": "0.5"},
	}

	_, err := venueClientFor(server).Route(context.Background(), intent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, solver.ErrConstraintViolation))
}

func TestVenueClientMinOutputSatisfied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Split fill across two quotes for the same asset; the minimum
		// applies to the summed amount.
		json.NewEncoder(w).Encode(VenueRouteResponse{
			IntentID: "intent-1",
			Fills: []solver.AssetAmount{
				{Asset: "WETH", Amount: "0.3"},
				{Asset: "WETH", Amount: "0.2"},
			},
		})
	}))
	defer server.Close()

	intent := testIntent()
	intent.Constraints = &solver.Constraints{
		MinOutputs: map[string]string{"WETH": "0.5"},
	}

	outcome, err := venueClientFor(server).Route(context.Background(), intent)
	require.NoError(t, err)
	assert.Len(t, outcome.Outputs, 2)
}

func TestVenueClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no liquidity", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := venueClientFor(server).Route(context.Background(), testIntent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestVenueClientConstraintsForwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request VenueRouteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, 50, request.MaxSlippageBps)
		assert.Equal(t, int64(1756200000000), request.Deadline)

		json.NewEncoder(w).Encode(VenueRouteResponse{
			IntentID: request.IntentID,
			Fills:    []solver.AssetAmount{{Asset: "WETH", Amount: "0.5"}},
		})
	}))
	defer server.Close()

	intent := testIntent()
	intent.Constraints = &solver.Constraints{
		MaxSlippageBps: 50,
		Deadline:       1756200000000,
	}

	_, err := venueClientFor(server).Route(context.Background(), intent)
	require.NoError(t, err)
}
