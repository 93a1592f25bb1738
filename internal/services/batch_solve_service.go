package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"go-solver/internal/config"
	"go-solver/internal/metrics"
	"go-solver/internal/models"
	"go-solver/internal/repository"
	"go-solver/internal/solver"
)

// BatchSolveService runs one batch-solve attempt end to end: fetch the
// snapshot, find peer matches, route the residual, assemble the
// committed solution, persist it and hand it to the registry.
//
// All intermediate state lives in a per-attempt assembler, so attempts
// for different batches run fully in parallel (bounded by the
// configured worker capacity) and cancellation before Build simply
// discards the attempt.
type BatchSolveService struct {
	cfg          *config.Config
	source       BatchSource
	router       ResidualRouter
	submitter    ChainSubmitter
	solutionRepo repository.SolutionRepository
	batchRepo    repository.BatchRepository
	publisher    EventPublisher
	push         *WebSocketPushService
	archiver     *SolutionArchiveService
	slots        chan struct{}
}

// NewBatchSolveService creates a new BatchSolveService instance.
// Submitter, repositories, publisher, push service and archiver may be
// nil; the corresponding step is skipped. Source and router are
// required.
func NewBatchSolveService(
	cfg *config.Config,
	source BatchSource,
	router ResidualRouter,
	submitter ChainSubmitter,
	solutionRepo repository.SolutionRepository,
	batchRepo repository.BatchRepository,
	publisher EventPublisher,
	push *WebSocketPushService,
	archiver *SolutionArchiveService,
) *BatchSolveService {
	workers := cfg.Solver.MaxConcurrentSolves
	if workers <= 0 {
		workers = 1
	}
	return &BatchSolveService{
		cfg:          cfg,
		source:       source,
		router:       router,
		submitter:    submitter,
		solutionRepo: solutionRepo,
		batchRepo:    batchRepo,
		publisher:    publisher,
		push:         push,
		archiver:     archiver,
		slots:        make(chan struct{}, workers),
	}
}

// Solve executes one batch-solve attempt. The returned solution is
// assembled and persisted; a non-nil error alongside a non-nil solution
// means assembly succeeded but registry submission failed.
func (s *BatchSolveService) Solve(ctx context.Context, batchID string) (*solver.Solution, error) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	started := time.Now()
	defer func() {
		metrics.SolveDuration.Observe(time.Since(started).Seconds())
	}()

	s.setBatchStatus(ctx, batchID, models.BatchStatusSolving)

	intents, err := s.source.FetchIntents(ctx, batchID)
	if err != nil {
		s.failBatch(ctx, batchID, fmt.Sprintf("fetch intents: %v", err))
		return nil, fmt.Errorf("failed to fetch intents for batch %s: %w", batchID, err)
	}
	if len(intents) == 0 {
		s.failBatch(ctx, batchID, "batch has no intents")
		return nil, fmt.Errorf("batch %s has no intents", batchID)
	}

	matches := solver.FindMatches(intents)
	for _, m := range matches {
		metrics.MatchesFound.WithLabelValues(string(m.Type)).Inc()
	}

	logrus.WithFields(logrus.Fields{
		"batch_id": batchID,
		"intents":  len(intents),
		"matches":  len(matches),
	}).Info("Peer matching completed")

	assembler := solver.NewSolutionAssembler(intents)

	for i := range matches {
		outcomeA, outcomeB, err := s.matchOutcomes(ctx, &matches[i])
		if err != nil {
			s.failBatch(ctx, batchID, fmt.Sprintf("match outcome: %v", err))
			return nil, err
		}
		assembler.AddOutcome(outcomeA)
		assembler.AddOutcome(outcomeB)
		metrics.IntentsResolved.WithLabelValues("p2p").Add(2)
	}

	for _, intent := range solver.Residual(intents, matches) {
		outcome, err := s.router.Route(ctx, intent)
		if err != nil {
			metrics.ResidualRoutingFailures.Inc()
			logrus.WithError(err).WithFields(logrus.Fields{
				"batch_id":  batchID,
				"intent_id": intent.ID,
			}).Warn("Residual routing failed")

			if s.cfg.Solver.ResidualPolicy == config.ResidualPolicyAbort {
				s.failBatch(ctx, batchID, fmt.Sprintf("residual routing for intent %s: %v", intent.ID, err))
				return nil, fmt.Errorf("residual routing failed for intent %s in batch %s: %w",
					intent.ID, batchID, err)
			}
			assembler.MarkUnresolved(intent.ID)
			metrics.IntentsResolved.WithLabelValues("unresolved").Inc()
			continue
		}
		assembler.AddOutcome(outcome)
		metrics.IntentsResolved.WithLabelValues("routed").Inc()
	}

	solution, err := assembler.Build(batchID, s.cfg.Solver.Address)
	if err != nil {
		s.failBatch(ctx, batchID, fmt.Sprintf("assembly: %v", err))
		return nil, fmt.Errorf("failed to assemble solution for batch %s: %w", batchID, err)
	}

	logrus.WithFields(logrus.Fields{
		"batch_id":      batchID,
		"solution_id":   solution.ID,
		"outcomes":      len(solution.Outcomes),
		"unresolved":    len(solution.Unresolved),
		"total_surplus": solution.TotalSurplus,
		"commitment":    solution.CommitmentHash,
	}).Info("Solution assembled")

	if s.solutionRepo != nil {
		record, err := models.FromSolution(solution)
		if err != nil {
			s.failBatch(ctx, batchID, fmt.Sprintf("persistence: %v", err))
			return nil, err
		}
		if err := s.solutionRepo.Create(ctx, record); err != nil {
			s.failBatch(ctx, batchID, fmt.Sprintf("persistence: %v", err))
			return nil, fmt.Errorf("failed to persist solution %s: %w", solution.ID, err)
		}
	}

	s.setBatchStatus(ctx, batchID, models.BatchStatusSolved)
	metrics.BatchesSolved.WithLabelValues("solved").Inc()
	s.pushUpdate(solution, "assembled")

	// Archiving is best-effort: the persisted record is the source of
	// truth, blob artifacts are for operators and downstream consumers.
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, solution); err != nil {
			logrus.WithError(err).WithField("solution_id", solution.ID).Warn("Solution archiving failed")
		}
	}

	if s.submitter == nil {
		return solution, nil
	}
	return solution, s.submit(ctx, solution)
}

// matchOutcomes turns one match into its pair of peer outcomes. Each
// side expects the counterparty's input asset for the amount actually
// exchanged; the match surplus is attributed to the larger side of a
// partial match, whose excess the remainder policy then settles.
func (s *BatchSolveService) matchOutcomes(ctx context.Context, match *solver.Match) (solver.Outcome, solver.Outcome, error) {
	filled := match.FilledAmount().String()

	outcomeA := solver.Outcome{
		IntentID: match.IntentA.ID,
		Outputs: []solver.AssetAmount{
			{Asset: match.IntentB.Input.Asset, Amount: filled},
		},
		Surplus: "0",
		Path:    solver.PathP2P,
	}
	outcomeB := solver.Outcome{
		IntentID: match.IntentB.ID,
		Outputs: []solver.AssetAmount{
			{Asset: match.IntentA.Input.Asset, Amount: filled},
		},
		Surplus: "0",
		Path:    solver.PathP2P,
	}

	if match.Type != solver.MatchPartial {
		return outcomeA, outcomeB, nil
	}

	larger := match.LargerSide()
	if larger.ID == match.IntentA.ID {
		outcomeA.Surplus = match.Surplus
	} else {
		outcomeB.Surplus = match.Surplus
	}

	if s.cfg.Solver.RemainderPolicy != config.RemainderPolicyRoute {
		return outcomeA, outcomeB, nil
	}

	// Route the unfilled excess of the larger side and fold the venue
	// fills into that side's single outcome. A remainder that cannot be
	// routed is not fatal: the peer leg already settles the matched
	// quantity, so the excess simply stays unfilled.
	remainder := solver.Intent{
		ID:          larger.ID,
		Owner:       larger.Owner,
		Category:    larger.Category,
		Input:       solver.AssetAmount{Asset: larger.Input.Asset, Amount: match.Surplus},
		Outputs:     larger.Outputs,
		Constraints: nil, // minimums apply to the whole intent, not the remainder slice
	}
	routed, err := s.router.Route(ctx, remainder)
	if err != nil {
		metrics.ResidualRoutingFailures.Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"intent_id": larger.ID,
			"remainder": match.Surplus,
		}).Warn("Partial-match remainder routing failed, excess stays unfilled")
		return outcomeA, outcomeB, nil
	}

	target := &outcomeA
	if larger.ID == match.IntentB.ID {
		target = &outcomeB
	}
	merged, err := mergeFills(target.Outputs, routed.Outputs)
	if err != nil {
		metrics.ResidualRoutingFailures.Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"intent_id": larger.ID,
			"remainder": match.Surplus,
		}).Warn("Partial-match remainder fill rejected, excess stays unfilled")
		return outcomeA, outcomeB, nil
	}
	target.Outputs = merged
	return outcomeA, outcomeB, nil
}

// mergeFills adds venue fills into an outcome's expected outputs,
// summing amounts per asset with exact decimal arithmetic. Every
// amount on both sides must parse as a decimal string; a fill that
// does not is never folded into a committed outcome.
func mergeFills(base, extra []solver.AssetAmount) ([]solver.AssetAmount, error) {
	merged := make([]solver.AssetAmount, len(base))
	copy(merged, base)

	for _, fill := range extra {
		add, err := decimal.NewFromString(fill.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid fill amount %q for asset %s: %w", fill.Amount, fill.Asset, err)
		}
		found := false
		for i := range merged {
			if merged[i].Asset == fill.Asset {
				current, err := decimal.NewFromString(merged[i].Amount)
				if err != nil {
					return nil, fmt.Errorf("invalid outcome amount %q for asset %s: %w",
						merged[i].Amount, merged[i].Asset, err)
				}
				merged[i].Amount = current.Add(add).String()
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, fill)
		}
	}
	return merged, nil
}

// submit hands the solution to the registry and records the result.
func (s *BatchSolveService) submit(ctx context.Context, solution *solver.Solution) error {
	started := time.Now()
	receipt, err := s.submitter.Submit(ctx, solution)
	metrics.SubmissionDuration.Observe(time.Since(started).Seconds())

	if err != nil || !receipt.Accepted {
		metrics.SolutionsSubmitted.WithLabelValues("rejected").Inc()
		if s.solutionRepo != nil {
			if markErr := s.solutionRepo.MarkRejected(ctx, solution.ID); markErr != nil {
				logrus.WithError(markErr).Error("Failed to mark solution rejected")
			}
		}
		if s.publisher != nil {
			s.publisher.SolveFailed(solution.BatchID, "registry submission failed")
		}
		s.pushUpdate(solution, "rejected")
		if err != nil {
			return fmt.Errorf("registry submission failed for solution %s: %w", solution.ID, err)
		}
		return fmt.Errorf("registry reverted submission of solution %s (tx %s)", solution.ID, receipt.TxHash)
	}

	metrics.SolutionsSubmitted.WithLabelValues("accepted").Inc()
	if s.solutionRepo != nil {
		if err := s.solutionRepo.MarkSubmitted(ctx, solution.ID, receipt.TxHash); err != nil {
			logrus.WithError(err).Error("Failed to mark solution submitted")
		}
	}
	if s.publisher != nil {
		s.publisher.SolutionSubmitted(solution, receipt.TxHash)
	}
	s.pushUpdate(solution, "submitted")

	logrus.WithFields(logrus.Fields{
		"solution_id": solution.ID,
		"tx_hash":     receipt.TxHash,
		"block":       receipt.BlockNumber,
	}).Info("Solution accepted by registry")
	return nil
}

func (s *BatchSolveService) setBatchStatus(ctx context.Context, batchID string, status models.BatchStatus) {
	if s.batchRepo == nil {
		return
	}
	if err := s.batchRepo.UpdateStatus(ctx, batchID, status); err != nil {
		logrus.WithError(err).WithField("batch_id", batchID).Error("Failed to update batch status")
	}
}

func (s *BatchSolveService) failBatch(ctx context.Context, batchID, reason string) {
	s.setBatchStatus(ctx, batchID, models.BatchStatusFailed)
	metrics.BatchesSolved.WithLabelValues("failed").Inc()
	if s.publisher != nil {
		s.publisher.SolveFailed(batchID, reason)
	}
}

func (s *BatchSolveService) pushUpdate(solution *solver.Solution, action string) {
	if s.push == nil {
		return
	}
	s.push.PushSolutionUpdate(solution, action)
}
