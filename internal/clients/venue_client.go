package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"go-solver/internal/config"
	"go-solver/internal/solver"
)

// VenueClient routes residual intents through an external venue's HTTP
// API. It is the default ResidualRouter adapter; the routing logic
// itself lives entirely on the venue side.
type VenueClient struct {
	venueID    string
	baseURL    string
	httpClient *http.Client
}

// NewVenueClient creates a new VenueClient instance
func NewVenueClient(cfg *config.VenueConfig) *VenueClient {
	return &VenueClient{
		venueID: cfg.ID,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// VenueRouteRequest represents a venue route request
type VenueRouteRequest struct {
	IntentID       string              `json:"intentId"`
	Owner          string              `json:"owner"`
	InputAsset     string              `json:"inputAsset"`
	InputAmount    string              `json:"inputAmount"`
	Outputs        []solver.OutputSpec `json:"outputs"`
	MaxSlippageBps int                 `json:"maxSlippageBps,omitempty"`
	Deadline       int64               `json:"deadline,omitempty"`
}

// VenueRouteResponse represents a venue route response
type VenueRouteResponse struct {
	IntentID string               `json:"intentId"`
	Fills    []solver.AssetAmount `json:"fills"`
	Surplus  string               `json:"surplus"`
}

// Route fills one intent through the venue. The returned outcome is
// checked against the intent's minimum-output constraint: a fill below
// a stated minimum is rejected here rather than silently accepted.
func (c *VenueClient) Route(ctx context.Context, intent solver.Intent) (solver.Outcome, error) {
	request := VenueRouteRequest{
		IntentID:    intent.ID,
		Owner:       intent.Owner,
		InputAsset:  intent.Input.Asset,
		InputAmount: intent.Input.Amount,
		Outputs:     intent.Outputs,
	}
	if intent.Constraints != nil {
		request.MaxSlippageBps = intent.Constraints.MaxSlippageBps
		request.Deadline = intent.Constraints.Deadline
	}

	body, err := json.Marshal(request)
	if err != nil {
		return solver.Outcome{}, fmt.Errorf("failed to marshal route request for intent %s: %w", intent.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/route", bytes.NewReader(body))
	if err != nil {
		return solver.Outcome{}, fmt.Errorf("failed to create route request for intent %s: %w", intent.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return solver.Outcome{}, fmt.Errorf("venue route call failed for intent %s: %w", intent.ID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return solver.Outcome{}, fmt.Errorf("failed to read route response for intent %s: %w", intent.ID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return solver.Outcome{}, fmt.Errorf("venue returned status %d for intent %s: %s",
			resp.StatusCode, intent.ID, string(respBody))
	}

	var routeResp VenueRouteResponse
	if err := json.Unmarshal(respBody, &routeResp); err != nil {
		return solver.Outcome{}, fmt.Errorf("invalid route response for intent %s: %w", intent.ID, err)
	}

	outcome := solver.Outcome{
		IntentID: intent.ID,
		Outputs:  routeResp.Fills,
		Surplus:  routeResp.Surplus,
		Path:     c.venueID,
	}
	if outcome.Surplus == "" {
		outcome.Surplus = "0"
	}

	filled, err := sumFills(intent.ID, outcome.Outputs)
	if err != nil {
		return solver.Outcome{}, err
	}
	if err := checkMinOutputs(&intent, filled); err != nil {
		return solver.Outcome{}, err
	}
	return outcome, nil
}

// sumFills parses the venue's fill amounts and totals them per asset.
// Every amount must be an exact decimal string; a response that fails
// to parse is rejected outright so garbage never reaches an assembled
// solution.
func sumFills(intentID string, fills []solver.AssetAmount) (map[string]decimal.Decimal, error) {
	filled := make(map[string]decimal.Decimal, len(fills))
	for _, fill := range fills {
		amount, err := decimal.NewFromString(fill.Amount)
		if err != nil {
			return nil, fmt.Errorf("intent %s: venue returned invalid fill amount %q: %w",
				intentID, fill.Amount, err)
		}
		filled[fill.Asset] = filled[fill.Asset].Add(amount)
	}
	return filled, nil
}

// checkMinOutputs enforces the residual-routing postcondition: every
// asset with a stated minimum must be filled at or above it.
func checkMinOutputs(intent *solver.Intent, filled map[string]decimal.Decimal) error {
	if intent.Constraints == nil || len(intent.Constraints.MinOutputs) == 0 {
		return nil
	}

	for asset := range intent.Constraints.MinOutputs {
		min := intent.MinOutput(asset)
		if min == nil {
			continue
		}
		if filled[asset].LessThan(*min) {
			return fmt.Errorf("intent %s: fill %s below minimum %s for asset %s: %w",
				intent.ID, filled[asset].String(), min.String(), asset, solver.ErrConstraintViolation)
		}
	}
	return nil
}
