package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go-solver/internal/solver"
)

// Batch lifecycle status enum
type BatchStatus string

const (
	BatchStatusPending BatchStatus = "pending" // ingested, waiting for a solve attempt
	BatchStatusSolving BatchStatus = "solving" // a solve attempt is in flight
	BatchStatusSolved  BatchStatus = "solved"  // a solution was assembled and submitted
	BatchStatusFailed  BatchStatus = "failed"  // the solve attempt was aborted
)

// Solution submission status enum
type SolutionStatus string

const (
	SolutionStatusAssembled SolutionStatus = "assembled" // built, not yet submitted
	SolutionStatusSubmitted SolutionStatus = "submitted" // accepted by the registry
	SolutionStatusRejected  SolutionStatus = "rejected"  // registry submission failed
)

// BatchRecord is one ingested batch of intents.
type BatchRecord struct {
	ID          string      `json:"id" gorm:"primaryKey;size:128"`
	Status      BatchStatus `json:"status" gorm:"size:32;index;default:pending"`
	IntentCount int         `json:"intent_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName specifies the table name for BatchRecord
func (BatchRecord) TableName() string {
	return "batches"
}

// IntentRecord is the persisted form of one ingested intent. Outputs
// and constraints are stored as JSONB payloads since only the solve
// path reads them back.
type IntentRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;size:128"`
	BatchID     string    `json:"batch_id" gorm:"size:128;index;not null"`
	Owner       string    `json:"owner" gorm:"size:128;index;not null"`
	Category    string    `json:"category" gorm:"size:32;not null"`
	InputAsset  string    `json:"input_asset" gorm:"size:128;not null"`
	InputAmount string    `json:"input_amount" gorm:"size:96;not null"` // exact decimal string
	Outputs     string    `json:"outputs" gorm:"type:jsonb;not null"`
	Constraints string    `json:"constraints" gorm:"type:jsonb"`
	Position    int       `json:"position"` // order within the batch, matching is order sensitive
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for IntentRecord
func (IntentRecord) TableName() string {
	return "intents"
}

// ToIntent rebuilds the in-memory intent consumed by the matching
// engine from its persisted form.
func (r *IntentRecord) ToIntent() (solver.Intent, error) {
	intent := solver.Intent{
		ID:       r.ID,
		Owner:    r.Owner,
		Category: r.Category,
		Input: solver.AssetAmount{
			Asset:  r.InputAsset,
			Amount: r.InputAmount,
		},
	}
	if err := json.Unmarshal([]byte(r.Outputs), &intent.Outputs); err != nil {
		return solver.Intent{}, fmt.Errorf("intent %s: invalid outputs payload: %w", r.ID, err)
	}
	if r.Constraints != "" && r.Constraints != "null" {
		intent.Constraints = &solver.Constraints{}
		if err := json.Unmarshal([]byte(r.Constraints), intent.Constraints); err != nil {
			return solver.Intent{}, fmt.Errorf("intent %s: invalid constraints payload: %w", r.ID, err)
		}
	}
	return intent, nil
}

// FromIntent converts an in-memory intent into its persisted form.
func FromIntent(batchID string, position int, intent *solver.Intent) (*IntentRecord, error) {
	outputs, err := json.Marshal(intent.Outputs)
	if err != nil {
		return nil, fmt.Errorf("intent %s: marshal outputs: %w", intent.ID, err)
	}
	record := &IntentRecord{
		ID:          intent.ID,
		BatchID:     batchID,
		Owner:       intent.Owner,
		Category:    intent.Category,
		InputAsset:  intent.Input.Asset,
		InputAmount: intent.Input.Amount,
		Outputs:     string(outputs),
		Position:    position,
	}
	if intent.Constraints != nil {
		constraints, err := json.Marshal(intent.Constraints)
		if err != nil {
			return nil, fmt.Errorf("intent %s: marshal constraints: %w", intent.ID, err)
		}
		record.Constraints = string(constraints)
	}
	return record, nil
}

// SolutionRecord is the persisted form of an assembled solution.
// Outcome rows live in the outcomes table keyed by solution_id.
type SolutionRecord struct {
	ID             string         `json:"id" gorm:"primaryKey;size:64"`
	BatchID        string         `json:"batch_id" gorm:"size:128;index;not null"`
	Solver         string         `json:"solver" gorm:"size:128;not null"`
	CommitmentHash string         `json:"commitment_hash" gorm:"size:66;uniqueIndex;not null"` // lowercase hex
	TotalSurplus   string         `json:"total_surplus" gorm:"size:96;not null"`
	Unresolved     string         `json:"unresolved" gorm:"type:jsonb"` // intent ids excluded from this solution
	Status         SolutionStatus `json:"status" gorm:"size:32;index;default:assembled"`
	TxHash         string         `json:"tx_hash" gorm:"size:66"` // registry transaction, set after submission
	SubmittedAt    *time.Time     `json:"submitted_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Outcomes []OutcomeRecord `json:"outcomes" gorm:"foreignKey:SolutionID;references:ID"`
}

// TableName specifies the table name for SolutionRecord
func (SolutionRecord) TableName() string {
	return "solutions"
}

// OutcomeRecord is one resolved intent inside a solution. Position
// preserves accumulation order, which the commitment hash depends on.
type OutcomeRecord struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SolutionID string    `json:"solution_id" gorm:"size:64;index;not null"`
	IntentID   string    `json:"intent_id" gorm:"size:128;index;not null"`
	Outputs    string    `json:"expected_outputs" gorm:"type:jsonb;not null"`
	Surplus    string    `json:"surplus" gorm:"size:96;not null"`
	Path       string    `json:"path" gorm:"size:64;not null"` // "P2P" or venue identifier
	Position   int       `json:"position" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for OutcomeRecord
func (OutcomeRecord) TableName() string {
	return "outcomes"
}

// ToOutcome rebuilds the in-memory outcome from its persisted form.
func (r *OutcomeRecord) ToOutcome() (solver.Outcome, error) {
	outcome := solver.Outcome{
		IntentID: r.IntentID,
		Surplus:  r.Surplus,
		Path:     r.Path,
	}
	if err := json.Unmarshal([]byte(r.Outputs), &outcome.Outputs); err != nil {
		return solver.Outcome{}, fmt.Errorf("outcome %d: invalid outputs payload: %w", r.ID, err)
	}
	return outcome, nil
}

// FromSolution converts an assembled solution into its persisted form.
func FromSolution(solution *solver.Solution) (*SolutionRecord, error) {
	unresolved, err := json.Marshal(solution.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("solution %s: marshal unresolved: %w", solution.ID, err)
	}
	record := &SolutionRecord{
		ID:             solution.ID,
		BatchID:        solution.BatchID,
		Solver:         solution.Solver,
		CommitmentHash: solution.CommitmentHash,
		TotalSurplus:   solution.TotalSurplus,
		Unresolved:     string(unresolved),
		Status:         SolutionStatusAssembled,
		CreatedAt:      solution.CreatedAt,
	}
	for i, outcome := range solution.Outcomes {
		outputs, err := json.Marshal(outcome.Outputs)
		if err != nil {
			return nil, fmt.Errorf("solution %s: marshal outcome %d outputs: %w", solution.ID, i, err)
		}
		record.Outcomes = append(record.Outcomes, OutcomeRecord{
			SolutionID: solution.ID,
			IntentID:   outcome.IntentID,
			Outputs:    string(outputs),
			Surplus:    outcome.Surplus,
			Path:       outcome.Path,
			Position:   i,
		})
	}
	return record, nil
}

// BlobObject is one stored artifact, either standalone or a member of
// a bundle.
type BlobObject struct {
	ID         uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Path       string     `json:"path" gorm:"size:512;uniqueIndex;not null"`
	Data       []byte     `json:"-"` // empty for bundle members, whose payload lives in the bundle row
	Size       int64      `json:"size" gorm:"not null"`
	BundlePath string     `json:"bundle_path,omitempty" gorm:"size:512;index"` // set when stored inside a bundle
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for BlobObject
func (BlobObject) TableName() string {
	return "blob_objects"
}
