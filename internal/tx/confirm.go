package tx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Fantasim/splreaper/internal/config"
)

type statusPoller interface {
	signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
	blockHeight(ctx context.Context) (uint64, error)
}

// WaitForSOLConfirmation polls the signature status every interval until the
// transaction reaches confirmed or finalized commitment, fails on-chain, or
// the network block height passes ref.LastValidBlockHeight. Expiry is only
// reported after one more status poll. Poll errors are transient: they are
// logged and the next poll proceeds.
func WaitForSOLConfirmation(ctx context.Context, p statusPoller, sig solana.Signature, ref BlockhashRef, interval time.Duration) (uint64, error) {
	slog.Debug("waiting for SOL confirmation",
		"signature", sig.String(),
		"lastValidBlockHeight", ref.LastValidBlockHeight,
	)

	for {
		status, err := p.signatureStatus(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
			}
			slog.Warn("SOL confirmation poll error", "signature", sig.String(), "error", err)
		} else if slot, done, err := settled(sig, status); done {
			return slot, err
		}

		height, err := p.blockHeight(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
			}
			slog.Warn("SOL block height poll error", "signature", sig.String(), "error", err)
		} else if height > ref.LastValidBlockHeight {
			// The transaction may have landed in the last valid block after the status poll.
			if status, err := p.signatureStatus(ctx, sig); err == nil {
				if slot, done, err := settled(sig, status); done {
					return slot, err
				}
			}
			slog.Error("SOL blockhash expired before confirmation",
				"signature", sig.String(),
				"blockHeight", height,
				"lastValidBlockHeight", ref.LastValidBlockHeight,
			)
			return 0, fmt.Errorf("%w: signature %s, block height %d > %d",
				config.ErrBlockhashExpired, sig, height, ref.LastValidBlockHeight)
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-time.After(interval):
			slog.Debug("SOL confirmation not ready, polling again", "signature", sig.String())
		}
	}
}

// settled reports whether status is terminal: an on-chain error, or confirmed
// or finalized commitment.
func settled(sig solana.Signature, status *rpc.SignatureStatusesResult) (uint64, bool, error) {
	if status == nil {
		return 0, false, nil
	}
	if status.Err != nil {
		slog.Error("SOL transaction failed on-chain",
			"signature", sig.String(),
			"error", status.Err,
		)
		return 0, true, fmt.Errorf("%w: %v", config.ErrTxFailed, status.Err)
	}

	cs := status.ConfirmationStatus
	if cs != rpc.ConfirmationStatusConfirmed && cs != rpc.ConfirmationStatusFinalized {
		return 0, false, nil
	}
	slog.Info("SOL transaction confirmed",
		"signature", sig.String(),
		"slot", status.Slot,
		"confirmationStatus", cs,
	)
	return status.Slot, true, nil
}
