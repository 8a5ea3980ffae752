package tx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Fantasim/splreaper/internal/classify"
	"github.com/Fantasim/splreaper/internal/config"
)

// BlockhashRef is a recent blockhash and the last block height at which a
// transaction referencing it can still land.
type BlockhashRef struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// SOLRPCClient is the network surface the cleanup pipeline depends on.
type SOLRPCClient interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]classify.RawAccount, error)
	GetLatestBlockhash(ctx context.Context) (BlockhashRef, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// ConfirmTransaction blocks until sig reaches confirmed commitment and
	// returns its slot, or fails once ref's blockhash has expired.
	ConfirmTransaction(ctx context.Context, sig solana.Signature, ref BlockhashRef) (uint64, error)
}

// SolanaRPC is the subset of *rpc.Client used by DefaultSOLRPCClient.
type SolanaRPC interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

var _ SolanaRPC = (*rpc.Client)(nil)

// DefaultSOLRPCClient implements SOLRPCClient on solana-go's JSON-RPC client.
// Every call goes through the rate limiter.
type DefaultSOLRPCClient struct {
	rpc          SolanaRPC
	limiter      *RateLimiter
	pollInterval time.Duration
}

// NewDefaultSOLRPCClient wraps client with a limiter of rps requests per second.
func NewDefaultSOLRPCClient(client SolanaRPC, name string, rps int, pollInterval time.Duration) *DefaultSOLRPCClient {
	slog.Info("SOL RPC client created",
		"endpoint", name,
		"rps", rps,
		"pollInterval", pollInterval,
	)
	return &DefaultSOLRPCClient{
		rpc:          client,
		limiter:      NewRateLimiter(name, rps),
		pollInterval: pollInterval,
	}
}

// acquire waits for a rate limiter slot and bounds the request by
// config.RPCRequestTimeout.
func (c *DefaultSOLRPCClient) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, config.RPCRequestTimeout)
	return reqCtx, cancel, nil
}

// GetTokenAccountsByOwner lists every SPL Token program account held by owner.
func (c *DefaultSOLRPCClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]classify.RawAccount, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	programID := solana.TokenProgramID
	res, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner %s: %w", owner, err)
	}
	if res == nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner %s: empty response", owner)
	}

	out := make([]classify.RawAccount, 0, len(res.Value))
	for _, acct := range res.Value {
		if acct == nil {
			continue
		}
		out = append(out, classify.RawAccount{Address: acct.Pubkey, Data: acct.Account.Data.GetBinary()})
	}

	slog.Debug("token accounts fetched", "owner", owner.String(), "count", len(out))
	return out, nil
}

// GetLatestBlockhash fetches a fresh blockhash at confirmed commitment.
func (c *DefaultSOLRPCClient) GetLatestBlockhash(ctx context.Context) (BlockhashRef, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return BlockhashRef{}, err
	}
	defer cancel()

	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return BlockhashRef{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return BlockhashRef{}, fmt.Errorf("getLatestBlockhash: empty response")
	}

	ref := BlockhashRef{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}

	slog.Debug("SOL blockhash fetched",
		"blockhash", ref.Blockhash.String(),
		"lastValidBlockHeight", ref.LastValidBlockHeight,
	)

	return ref, nil
}

// SendTransaction submits a signed transaction with preflight at confirmed commitment.
func (c *DefaultSOLRPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	defer cancel()

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}

	slog.Debug("SOL transaction sent", "signature", sig.String())
	return sig, nil
}

// ConfirmTransaction polls until sig is confirmed; see WaitForSOLConfirmation.
func (c *DefaultSOLRPCClient) ConfirmTransaction(ctx context.Context, sig solana.Signature, ref BlockhashRef) (uint64, error) {
	return WaitForSOLConfirmation(ctx, c, sig, ref, c.pollInterval)
}

func (c *DefaultSOLRPCClient) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if res == nil || len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

func (c *DefaultSOLRPCClient) blockHeight(ctx context.Context) (uint64, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	h, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("getBlockHeight: %w", err)
	}
	return h, nil
}
