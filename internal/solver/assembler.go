package solver

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SolutionAssembler accumulates outcomes for one batch-solve attempt
// and builds the final immutable Solution. An assembler instance
// belongs to a single attempt and must not be shared across concurrent
// attempts; all state is in-memory and simply discarded if the attempt
// is abandoned.
type SolutionAssembler struct {
	batchIntents map[string]struct{}
	outcomes     []Outcome
	unresolved   []string
}

// NewSolutionAssembler creates an assembler scoped to the given batch
// snapshot. Outcomes referencing intents outside this snapshot are
// rejected at build time.
func NewSolutionAssembler(intents []Intent) *SolutionAssembler {
	known := make(map[string]struct{}, len(intents))
	for _, intent := range intents {
		known[intent.ID] = struct{}{}
	}
	return &SolutionAssembler{
		batchIntents: known,
		outcomes:     make([]Outcome, 0, len(intents)),
	}
}

// AddOutcome appends an outcome. Order matters: the commitment hash
// covers outcomes in exactly the order they were added, so callers add
// matched outcomes in match-discovery order followed by residual
// outcomes in resolution order.
func (a *SolutionAssembler) AddOutcome(outcome Outcome) {
	a.outcomes = append(a.outcomes, outcome)
}

// MarkUnresolved records an intent that ends up in neither a matched
// nor a routed outcome, so the batch coverage stays explicit. Used by
// the exclude-on-failure residual policy.
func (a *SolutionAssembler) MarkUnresolved(intentID string) {
	a.unresolved = append(a.unresolved, intentID)
}

// OutcomeCount returns the number of outcomes accumulated so far.
func (a *SolutionAssembler) OutcomeCount() int {
	return len(a.outcomes)
}

// Build validates coverage and produces the Solution.
//
// It fails with ErrIncompleteSolution when no outcomes were added, and
// with ErrInconsistentCoverage when an outcome references an intent id
// not present in the batch or an intent id appears in more than one
// outcome. The total surplus is the exact decimal sum of all outcome
// surpluses; the commitment hash is a Keccak-256 digest over the
// canonical encoding of (batch id, solver address, ordered outcomes).
func (a *SolutionAssembler) Build(batchID, solverAddress string) (*Solution, error) {
	if len(a.outcomes) == 0 {
		return nil, ErrIncompleteSolution
	}

	seen := make(map[string]struct{}, len(a.outcomes))
	totalSurplus := decimal.Zero
	for _, outcome := range a.outcomes {
		if _, known := a.batchIntents[outcome.IntentID]; !known {
			return nil, fmt.Errorf("outcome references intent %s not in batch %s: %w",
				outcome.IntentID, batchID, ErrInconsistentCoverage)
		}
		if _, dup := seen[outcome.IntentID]; dup {
			return nil, fmt.Errorf("intent %s appears in more than one outcome: %w",
				outcome.IntentID, ErrInconsistentCoverage)
		}
		seen[outcome.IntentID] = struct{}{}

		surplus, err := decimal.NewFromString(outcome.Surplus)
		if err != nil {
			return nil, fmt.Errorf("outcome for intent %s has invalid surplus %q: %w",
				outcome.IntentID, outcome.Surplus, err)
		}
		totalSurplus = totalSurplus.Add(surplus)
	}

	outcomes := make([]Outcome, len(a.outcomes))
	copy(outcomes, a.outcomes)
	unresolved := make([]string, len(a.unresolved))
	copy(unresolved, a.unresolved)

	return &Solution{
		ID:             uuid.New().String(),
		BatchID:        batchID,
		Solver:         solverAddress,
		Outcomes:       outcomes,
		Unresolved:     unresolved,
		TotalSurplus:   totalSurplus.String(),
		CommitmentHash: ComputeCommitment(batchID, solverAddress, outcomes),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ComputeCommitment derives the lowercase hex Keccak-256 digest that
// binds an off-chain solution payload to its on-chain commitment.
//
// The preimage is a canonical byte encoding: every string field is
// length-prefixed (big-endian uint32) and lists are count-prefixed, so
// no two distinct (batch id, solver, outcome sequence) triples share an
// encoding. Reordering outcomes or changing any field changes the hash.
func ComputeCommitment(batchID, solverAddress string, outcomes []Outcome) string {
	var buf []byte
	buf = appendString(buf, batchID)
	buf = appendString(buf, solverAddress)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(outcomes)))
	for _, outcome := range outcomes {
		buf = appendString(buf, outcome.IntentID)
		buf = appendString(buf, outcome.Path)
		buf = appendString(buf, outcome.Surplus)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(outcome.Outputs)))
		for _, output := range outcome.Outputs {
			buf = appendString(buf, output.Asset)
			buf = appendString(buf, output.Amount)
		}
	}
	return hex.EncodeToString(crypto.Keccak256(buf))
}

// appendString writes a length-prefixed string into the preimage
// buffer.
func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
