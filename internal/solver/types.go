package solver

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Intent categories. Only swap intents are eligible for peer matching;
// every other category always goes through residual routing.
const (
	CategorySwap = "swap"
)

// PathP2P is the execution-path label for outcomes settled peer-to-peer.
// Routed outcomes carry the external venue identifier instead.
const PathP2P = "P2P"

// AssetAmount pairs an opaque asset identifier with an exact decimal
// amount encoded as a string. Amounts are never represented as floats
// to avoid cross-chain precision loss.
type AssetAmount struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// OutputSpec describes a desired output asset. Amount is optional:
// an empty string means "as much as possible".
type OutputSpec struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount,omitempty"`
}

// Constraints carries the optional execution constraints of an intent.
type Constraints struct {
	MaxSlippageBps int               `json:"max_slippage_bps,omitempty"`
	Deadline       int64             `json:"deadline,omitempty"` // epoch milliseconds
	MinOutputs     map[string]string `json:"min_outputs,omitempty"`
}

// Intent is a user's declared trade request. Intents are immutable once
// ingested into a batch; the matching engine only reads them.
type Intent struct {
	ID          string       `json:"id"`
	Owner       string       `json:"owner"`
	Category    string       `json:"category"`
	Input       AssetAmount  `json:"input"`
	Outputs     []OutputSpec `json:"outputs"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// MatchType classifies a peer match.
type MatchType string

const (
	// MatchExact means both sides trade the same amount.
	MatchExact MatchType = "exact"
	// MatchPartial means the amounts differ; the excess of the larger
	// side cannot be filled peer-to-peer.
	MatchPartial MatchType = "partial"
)

// Match is an ordered pair of intents settled directly against each
// other. IntentA is always the earlier-indexed intent of the pair.
type Match struct {
	IntentA Intent    `json:"intent_a"`
	IntentB Intent    `json:"intent_b"`
	Type    MatchType `json:"match_type"`
	Surplus string    `json:"surplus"`
}

// Outcome is the resolved result for a single intent, either matched
// peer-to-peer or routed through an external venue.
type Outcome struct {
	IntentID string        `json:"intent_id"`
	Outputs  []AssetAmount `json:"expected_outputs"`
	Surplus  string        `json:"surplus"`
	Path     string        `json:"path"`
}

// Solution is the full, committed set of outcomes a solver proposes for
// a batch. It is immutable after assembly.
type Solution struct {
	ID             string    `json:"id"`
	BatchID        string    `json:"batch_id"`
	Solver         string    `json:"solver"`
	Outcomes       []Outcome `json:"outcomes"`
	Unresolved     []string  `json:"unresolved,omitempty"`
	TotalSurplus   string    `json:"total_surplus"`
	CommitmentHash string    `json:"commitment_hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidateIntent checks the structural invariants a well-formed intent
// must satisfy. Batch ingestion performs this before intents reach the
// matching engine, so the engine itself never re-validates.
func ValidateIntent(intent *Intent) error {
	if intent.ID == "" {
		return fmt.Errorf("intent id is required")
	}
	if intent.Owner == "" {
		return fmt.Errorf("intent %s: owner is required", intent.ID)
	}
	if intent.Category == "" {
		return fmt.Errorf("intent %s: category is required", intent.ID)
	}
	if intent.Input.Asset == "" {
		return fmt.Errorf("intent %s: input asset is required", intent.ID)
	}
	amount, err := decimal.NewFromString(intent.Input.Amount)
	if err != nil {
		return fmt.Errorf("intent %s: invalid input amount %q: %w", intent.ID, intent.Input.Amount, err)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("intent %s: input amount must be positive, got %s", intent.ID, intent.Input.Amount)
	}
	if len(intent.Outputs) == 0 {
		return fmt.Errorf("intent %s: at least one output spec is required", intent.ID)
	}
	for _, output := range intent.Outputs {
		if output.Asset == "" {
			return fmt.Errorf("intent %s: output asset is required", intent.ID)
		}
		if output.Amount != "" {
			if _, err := decimal.NewFromString(output.Amount); err != nil {
				return fmt.Errorf("intent %s: invalid output amount %q: %w", intent.ID, output.Amount, err)
			}
		}
	}
	if intent.Constraints != nil {
		for asset, min := range intent.Constraints.MinOutputs {
			if _, err := decimal.NewFromString(min); err != nil {
				return fmt.Errorf("intent %s: invalid minimum output %q for asset %s: %w", intent.ID, min, asset, err)
			}
		}
	}
	return nil
}

// MinOutput returns the declared minimum output amount for the given
// asset, or nil if the intent states no minimum for it.
func (i *Intent) MinOutput(asset string) *decimal.Decimal {
	if i.Constraints == nil || i.Constraints.MinOutputs == nil {
		return nil
	}
	raw, ok := i.Constraints.MinOutputs[asset]
	if !ok {
		return nil
	}
	min, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &min
}
