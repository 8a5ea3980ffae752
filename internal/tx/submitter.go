package tx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Fantasim/splreaper/internal/classify"
	"github.com/Fantasim/splreaper/internal/config"
	"github.com/Fantasim/splreaper/internal/models"
)

// Submitter turns one batch into one signed transaction, sends it, and waits
// for confirmation. Failures never escape as errors: they are reported in the
// returned SubmissionResult so the caller can move on to the next batch.
type Submitter struct {
	client   SOLRPCClient
	operator solana.PrivateKey
	payer    solana.PublicKey
}

// NewSubmitter creates a submitter signing and paying fees with operator.
func NewSubmitter(client SOLRPCClient, operator solana.PrivateKey) *Submitter {
	return &Submitter{
		client:   client,
		operator: operator,
		payer:    operator.PublicKey(),
	}
}

// Submit runs Built -> Signed -> Submitted -> {Confirmed | Failed} for one batch.
func (s *Submitter) Submit(ctx context.Context, phase models.Phase, index int, batch []classify.TokenAccount) models.SubmissionResult {
	start := time.Now()

	result := models.SubmissionResult{
		Phase:      phase,
		BatchIndex: index,
		BatchSize:  len(batch),
		Accounts:   make([]string, len(batch)),
	}
	for i, acct := range batch {
		result.Accounts[i] = acct.Address.String()
	}

	fail := func(err error) models.SubmissionResult {
		result.Outcome = models.OutcomeFailed
		result.Error = err.Error()
		result.ErrorCode = config.ErrorCode(err)
		result.Duration = time.Since(start)
		slog.Error("batch failed",
			"phase", phase,
			"batchIndex", index,
			"batchSize", len(batch),
			"signature", result.Signature,
			"errorCode", result.ErrorCode,
			"error", err,
		)
		return result
	}

	// Never reused across batches: a blockhash may expire while an earlier batch confirms.
	ref, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", config.ErrBlockhashFetchFailed, err))
	}

	tx, err := s.buildSigned(phase, batch, ref)
	if err != nil {
		return fail(err)
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", config.ErrTxSendFailed, err))
	}
	result.Signature = sig.String()

	slog.Info("batch submitted, waiting for confirmation",
		"phase", phase,
		"batchIndex", index,
		"signature", result.Signature,
	)

	slot, err := s.client.ConfirmTransaction(ctx, sig, ref)
	if err != nil {
		if !errors.Is(err, config.ErrTxFailed) && !errors.Is(err, config.ErrBlockhashExpired) {
			err = fmt.Errorf("confirmation: %w", err)
		}
		return fail(err)
	}

	result.Outcome = models.OutcomeConfirmed
	result.Slot = slot
	result.Duration = time.Since(start)

	slog.Info("batch confirmed",
		"phase", phase,
		"batchIndex", index,
		"signature", result.Signature,
		"instructions", len(batch),
		"slot", slot,
		"duration", result.Duration.Round(time.Millisecond),
	)

	return result
}

func (s *Submitter) buildSigned(phase models.Phase, batch []classify.TokenAccount, ref BlockhashRef) (*solana.Transaction, error) {
	instructions, err := BuildInstructions(phase, batch, s.payer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrTxBuildFailed, err)
	}

	tx, err := solana.NewTransaction(instructions, ref.Blockhash, solana.TransactionPayer(s.payer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrTxBuildFailed, err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.payer) {
			return &s.operator
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: sign: %v", config.ErrTxBuildFailed, err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize: %v", config.ErrTxBuildFailed, err)
	}
	if len(raw) > config.SOLMaxTxSize {
		return nil, fmt.Errorf("%w: %d bytes for %d instructions", config.ErrTxTooLarge, len(raw), len(batch))
	}

	slog.Debug("batch transaction built",
		"phase", phase,
		"instructions", len(instructions),
		"txSize", len(raw),
		"blockhash", ref.Blockhash.String(),
	)

	return tx, nil
}
