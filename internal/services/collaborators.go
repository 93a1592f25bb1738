package services

import (
	"context"

	"go-solver/internal/clients"
	"go-solver/internal/solver"
)

// BatchSource fetches the intent snapshot of a batch. The default
// implementation is the gorm-backed batch repository; tests and other
// orchestration layers can plug in their own.
type BatchSource interface {
	FetchIntents(ctx context.Context, batchID string) ([]solver.Intent, error)
}

// ResidualRouter fills one unmatched intent through an external venue.
// Implementations must honor the intent's minimum-output constraint and
// fail rather than return a non-conforming outcome.
type ResidualRouter interface {
	Route(ctx context.Context, intent solver.Intent) (solver.Outcome, error)
}

// ChainSubmitter submits an assembled solution to the on-chain
// registry. Failures are surfaced to the caller, never retried
// silently.
type ChainSubmitter interface {
	Submit(ctx context.Context, solution *solver.Solution) (*clients.SubmissionReceipt, error)
}

// EventPublisher broadcasts solution lifecycle events.
type EventPublisher interface {
	SolutionSubmitted(solution *solver.Solution, txHash string)
	SolveFailed(batchID string, reason string)
}
