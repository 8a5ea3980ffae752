// Package tx submits the burn and close transactions and drives a cleanup run.
package tx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/Fantasim/splreaper/internal/batch"
	"github.com/Fantasim/splreaper/internal/classify"
	"github.com/Fantasim/splreaper/internal/config"
	"github.com/Fantasim/splreaper/internal/models"
)

// SubmissionRecorder receives the audit trail of a run. *db.DB implements it.
type SubmissionRecorder interface {
	StartRun(runID, owner string, burnPlanned, closePlanned int) error
	RecordSubmission(runID string, r models.SubmissionResult) error
	FinishRun(summary *models.RunSummary) error
}

// CleanupOptions are the per-run knobs of a CleanupService.
type CleanupOptions struct {
	ExcludedMint   solana.PublicKey
	BurnBatchSize  int
	CloseBatchSize int
}

// CleanupService burns and closes every token account of the operator except
// those of the excluded mint. All burn batches reach a terminal state before
// the first close batch is built.
type CleanupService struct {
	client    SOLRPCClient
	submitter *Submitter
	owner     solana.PublicKey
	opts      CleanupOptions
	recorder  SubmissionRecorder
}

// NewCleanupService creates the cleanup orchestrator. recorder may be nil.
func NewCleanupService(client SOLRPCClient, operator solana.PrivateKey, opts CleanupOptions, recorder SubmissionRecorder) *CleanupService {
	owner := operator.PublicKey()
	slog.Info("cleanup service created",
		"owner", owner.String(),
		"excludedMint", opts.ExcludedMint.String(),
		"burnBatchSize", opts.BurnBatchSize,
		"closeBatchSize", opts.CloseBatchSize,
		"ledger", recorder != nil,
	)
	return &CleanupService{
		client:    client,
		submitter: NewSubmitter(client, operator),
		owner:     owner,
		opts:      opts,
		recorder:  recorder,
	}
}

type accountInventory struct {
	total    int
	eligible []classify.TokenAccount
	burnSet  []classify.TokenAccount
}

// inventory fetches and classifies the owner's accounts. Any error is fatal.
func (s *CleanupService) inventory(ctx context.Context) (*accountInventory, error) {
	if _, err := batch.Count(0, s.opts.BurnBatchSize); err != nil {
		return nil, fmt.Errorf("burn: %w", err)
	}
	if _, err := batch.Count(0, s.opts.CloseBatchSize); err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}

	raw, err := s.client.GetTokenAccountsByOwner(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrAccountFetchFailed, err)
	}

	records, err := classify.DecodeAll(raw)
	if err != nil {
		return nil, err
	}

	eligible, burnSet := classify.Classify(records, s.opts.ExcludedMint)

	slog.Info("token accounts classified",
		"owner", s.owner.String(),
		"total", len(records),
		"excluded", len(records)-len(eligible),
		"eligible", len(eligible),
		"withBalance", len(burnSet),
	)

	return &accountInventory{total: len(records), eligible: eligible, burnSet: burnSet}, nil
}

// Run executes the burn pass then the close pass. Batch failures are recorded
// in the summary and never abort the run; only fetch and decode errors, or
// cancellation of ctx, return an error.
func (s *CleanupService) Run(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()

	inv, err := s.inventory(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.RunSummary{
		RunID:         uuid.NewString(),
		Owner:         s.owner.String(),
		TotalAccounts: inv.total,
		ExcludedCount: inv.total - len(inv.eligible),
		Burn:          models.PhaseResult{Phase: models.PhaseBurn, AccountCount: len(inv.burnSet)},
		Close:         models.PhaseResult{Phase: models.PhaseClose, AccountCount: len(inv.eligible)},
	}

	if s.recorder != nil {
		if err := s.recorder.StartRun(summary.RunID, summary.Owner, len(inv.burnSet), len(inv.eligible)); err != nil {
			slog.Error("failed to record run start", "runID", summary.RunID, "error", err)
		}
	}

	slog.Info("tokens to burn", "runID", summary.RunID, "count", len(inv.burnSet))
	if err := s.runPhase(ctx, summary.RunID, &summary.Burn, inv.burnSet, s.opts.BurnBatchSize); err != nil {
		return s.finish(summary, start), err
	}

	slog.Info("accounts to close", "runID", summary.RunID, "count", len(inv.eligible))
	if err := s.runPhase(ctx, summary.RunID, &summary.Close, inv.eligible, s.opts.CloseBatchSize); err != nil {
		return s.finish(summary, start), err
	}

	return s.finish(summary, start), nil
}

func (s *CleanupService) runPhase(ctx context.Context, runID string, result *models.PhaseResult, accounts []classify.TokenAccount, size int) error {
	index := 0
	for b := range batch.Chunks(accounts, size) {
		if err := ctx.Err(); err != nil {
			slog.Warn("cleanup cancelled",
				"phase", result.Phase,
				"batchIndex", index,
				"error", err,
			)
			return err
		}

		r := s.submitter.Submit(ctx, result.Phase, index, b)
		result.Add(r)
		s.record(runID, r)
		index++
	}

	slog.Info("phase complete",
		"runID", runID,
		"phase", result.Phase,
		"batches", result.BatchCount,
		"confirmed", result.ConfirmedCount,
		"failed", result.FailedCount,
	)
	return nil
}

// record hands r to the ledger; ledger errors are logged only.
func (s *CleanupService) record(runID string, r models.SubmissionResult) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSubmission(runID, r); err != nil {
		slog.Error("failed to record submission",
			"runID", runID,
			"phase", r.Phase,
			"batchIndex", r.BatchIndex,
			"signature", r.Signature,
			"error", err,
		)
	}
}

func (s *CleanupService) finish(summary *models.RunSummary, start time.Time) *models.RunSummary {
	summary.Duration = time.Since(start)

	if s.recorder != nil {
		if err := s.recorder.FinishRun(summary); err != nil {
			slog.Error("failed to record run finish", "runID", summary.RunID, "error", err)
		}
	}

	slog.Info("cleanup run complete",
		"runID", summary.RunID,
		"burnBatches", summary.Burn.BatchCount,
		"burnConfirmed", summary.Burn.ConfirmedCount,
		"burnFailed", summary.Burn.FailedCount,
		"closeBatches", summary.Close.BatchCount,
		"closeConfirmed", summary.Close.ConfirmedCount,
		"closeFailed", summary.Close.FailedCount,
		"duration", summary.Duration.Round(time.Millisecond),
	)

	return summary
}

// Plan fetches and classifies accounts and returns the batches Run would
// submit, without building or sending any transaction.
func (s *CleanupService) Plan(ctx context.Context) ([]models.BatchPlan, error) {
	inv, err := s.inventory(ctx)
	if err != nil {
		return nil, err
	}

	burns, err := batch.Plan(inv.burnSet, s.opts.BurnBatchSize)
	if err != nil {
		return nil, err
	}
	closes, err := batch.Plan(inv.eligible, s.opts.CloseBatchSize)
	if err != nil {
		return nil, err
	}

	plans := make([]models.BatchPlan, 0, len(burns)+len(closes))
	plans = appendPlans(plans, models.PhaseBurn, burns)
	plans = appendPlans(plans, models.PhaseClose, closes)

	for _, p := range plans {
		slog.Info("planned batch",
			"phase", p.Phase,
			"batchIndex", p.BatchIndex,
			"size", len(p.Accounts),
			"accounts", p.Accounts,
		)
	}

	slog.Info("plan complete",
		"burnAccounts", len(inv.burnSet),
		"burnBatches", len(burns),
		"closeAccounts", len(inv.eligible),
		"closeBatches", len(closes),
	)

	return plans, nil
}

func appendPlans(plans []models.BatchPlan, phase models.Phase, batches [][]classify.TokenAccount) []models.BatchPlan {
	for i, b := range batches {
		addrs := make([]string, len(b))
		for j, acct := range b {
			addrs[j] = acct.Address.String()
		}
		plans = append(plans, models.BatchPlan{Phase: phase, BatchIndex: i, Accounts: addrs})
	}
	return plans
}
