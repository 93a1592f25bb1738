package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"go-solver/internal/clients"
	"go-solver/internal/solver"
)

// Subjects used on the solver event stream.
const (
	SubjectBatchReady        = "solver.batch.ready"
	SubjectSolutionSubmitted = "solver.solution.submitted"
	SubjectSolveFailed       = "solver.solution.failed"
)

// BatchReadyEvent announces a batch ready to be solved.
type BatchReadyEvent struct {
	BatchID   string `json:"batch_id"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// SolutionSubmittedEvent announces a solution accepted by the registry.
type SolutionSubmittedEvent struct {
	SolutionID     string `json:"solution_id"`
	BatchID        string `json:"batch_id"`
	Solver         string `json:"solver"`
	CommitmentHash string `json:"commitment_hash"`
	TotalSurplus   string `json:"total_surplus"`
	TxHash         string `json:"tx_hash"`
	Timestamp      int64  `json:"timestamp"` // epoch milliseconds
}

// SolveFailedEvent announces an aborted batch-solve attempt.
type SolveFailedEvent struct {
	BatchID   string `json:"batch_id"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Publisher publishes solution lifecycle events on JetStream. It
// implements services.EventPublisher.
type Publisher struct {
	nats *clients.NATSClient
}

// NewPublisher creates a new Publisher instance
func NewPublisher(nats *clients.NATSClient) *Publisher {
	return &Publisher{nats: nats}
}

// SolutionSubmitted publishes a solver.solution.submitted event.
func (p *Publisher) SolutionSubmitted(solution *solver.Solution, txHash string) {
	event := SolutionSubmittedEvent{
		SolutionID:     solution.ID,
		BatchID:        solution.BatchID,
		Solver:         solution.Solver,
		CommitmentHash: solution.CommitmentHash,
		TotalSurplus:   solution.TotalSurplus,
		TxHash:         txHash,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := p.nats.Publish(SubjectSolutionSubmitted, event); err != nil {
		logrus.WithError(err).Error("Failed to publish solution submitted event")
	}
}

// SolveFailed publishes a solver.solution.failed event.
func (p *Publisher) SolveFailed(batchID, reason string) {
	event := SolveFailedEvent{
		BatchID:   batchID,
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := p.nats.Publish(SubjectSolveFailed, event); err != nil {
		logrus.WithError(err).Error("Failed to publish solve failed event")
	}
}

// BatchSolver triggers a solve attempt; satisfied by
// services.BatchSolveService.
type BatchSolver interface {
	Solve(ctx context.Context, batchID string) (*solver.Solution, error)
}

// SubscribeBatchReady wires the batch-ready subject to the solver so
// that upstream ingestion can trigger solves without touching the HTTP
// API. Solve errors are logged; the event is still acked since the
// attempt's failure is recorded on the batch itself.
func SubscribeBatchReady(nats *clients.NATSClient, batchSolver BatchSolver) error {
	_, err := nats.Subscribe(SubjectBatchReady, func(data []byte) {
		var event BatchReadyEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logrus.WithError(err).Warn("Invalid batch ready event payload")
			return
		}

		logrus.WithField("batch_id", event.BatchID).Info("Batch ready event received")
		go func() {
			if _, err := batchSolver.Solve(context.Background(), event.BatchID); err != nil {
				logrus.WithError(err).WithField("batch_id", event.BatchID).Error("Event-triggered solve failed")
			}
		}()
	})
	return err
}
