package tx

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/Fantasim/splreaper/internal/classify"
	"github.com/Fantasim/splreaper/internal/config"
)

// fakeChain is an in-memory SOLRPCClient that executes burn and close
// instructions against its own account table, atomically per transaction.
type fakeChain struct {
	owner    solana.PublicKey
	accounts []*fakeAccount

	fetchErr error
	rawExtra []classify.RawAccount

	// Fault injection, keyed by call index.
	blockhashErrAt map[int]error
	sendErrAt      map[int]error
	confirmErrAt   map[int]error

	blockhashCalls int
	slot           uint64
	usedBlockhash  map[solana.Hash]bool
	sent           []sentTx
	pending        map[solana.Signature]*pendingTx
}

type fakeAccount struct {
	address solana.PublicKey
	mint    solana.PublicKey
	amount  uint64
}

type sentTx struct {
	kind         byte // token instruction type of the first instruction
	instructions int
	blockhash    solana.Hash
	payer        solana.PublicKey
	tx           *solana.Transaction
}

type pendingTx struct {
	index   int
	onChain error
	apply   func()
}

func newFakeChain(owner solana.PublicKey) *fakeChain {
	return &fakeChain{
		owner:          owner,
		blockhashErrAt: map[int]error{},
		sendErrAt:      map[int]error{},
		confirmErrAt:   map[int]error{},
		slot:           1000,
		usedBlockhash:  map[solana.Hash]bool{},
		pending:        map[solana.Signature]*pendingTx{},
	}
}

func (f *fakeChain) addAccount(mint solana.PublicKey, amount uint64) *fakeAccount {
	a := &fakeAccount{address: solana.NewWallet().PublicKey(), mint: mint, amount: amount}
	f.accounts = append(f.accounts, a)
	return a
}

func (f *fakeChain) find(addr solana.PublicKey) *fakeAccount {
	for _, a := range f.accounts {
		if a.address.Equals(addr) {
			return a
		}
	}
	return nil
}

func (f *fakeChain) GetTokenAccountsByOwner(_ context.Context, owner solana.PublicKey) ([]classify.RawAccount, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if !owner.Equals(f.owner) {
		return nil, fmt.Errorf("unexpected owner %s", owner)
	}
	out := make([]classify.RawAccount, 0, len(f.accounts)+len(f.rawExtra))
	for _, a := range f.accounts {
		out = append(out, classify.RawAccount{
			Address: a.address,
			Data:    tokenAccountData(a.mint, f.owner, a.amount),
		})
	}
	return append(out, f.rawExtra...), nil
}

func (f *fakeChain) GetLatestBlockhash(_ context.Context) (BlockhashRef, error) {
	idx := f.blockhashCalls
	f.blockhashCalls++
	if err := f.blockhashErrAt[idx]; err != nil {
		return BlockhashRef{}, err
	}
	var b [32]byte
	binary.LittleEndian.PutUint64(b[:], uint64(idx+1))
	return BlockhashRef{
		Blockhash:            solana.HashFromBytes(b[:]),
		LastValidBlockHeight: uint64(5000 + idx),
	}, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	idx := len(f.sent)

	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, fmt.Errorf("signature verification: %w", err)
	}
	if f.usedBlockhash[tx.Message.RecentBlockhash] {
		return solana.Signature{}, errors.New("blockhash reused across transactions")
	}
	f.usedBlockhash[tx.Message.RecentBlockhash] = true

	var kind byte
	if len(tx.Message.Instructions) > 0 && len(tx.Message.Instructions[0].Data) > 0 {
		kind = tx.Message.Instructions[0].Data[0]
	}
	f.sent = append(f.sent, sentTx{
		kind:         kind,
		instructions: len(tx.Message.Instructions),
		blockhash:    tx.Message.RecentBlockhash,
		payer:        tx.Message.AccountKeys[0],
		tx:           tx,
	})

	if err := f.sendErrAt[idx]; err != nil {
		return solana.Signature{}, err
	}

	apply, onChain := f.simulate(tx)
	sig := tx.Signatures[0]
	f.pending[sig] = &pendingTx{index: idx, onChain: onChain, apply: apply}
	return sig, nil
}

// simulate validates every instruction against a copy of the account table
// and returns the mutation to commit if all succeed.
func (f *fakeChain) simulate(tx *solana.Transaction) (func(), error) {
	amounts := make(map[solana.PublicKey]uint64, len(f.accounts))
	for _, a := range f.accounts {
		amounts[a.address] = a.amount
	}
	closed := map[solana.PublicKey]bool{}

	for i, ix := range tx.Message.Instructions {
		program := tx.Message.AccountKeys[ix.ProgramIDIndex]
		if !program.Equals(token.ProgramID) {
			return nil, fmt.Errorf("instruction %d: unexpected program %s", i, program)
		}
		addr := tx.Message.AccountKeys[ix.Accounts[0]]
		amount, ok := amounts[addr]
		if !ok || closed[addr] {
			return nil, fmt.Errorf("instruction %d: account %s does not exist", i, addr)
		}

		switch ix.Data[0] {
		case uint8(token.Instruction_Burn):
			burn := binary.LittleEndian.Uint64(ix.Data[1:9])
			if burn > amount {
				return nil, fmt.Errorf("instruction %d: insufficient funds", i)
			}
			amounts[addr] = amount - burn
		case uint8(token.Instruction_CloseAccount):
			if amount != 0 {
				return nil, fmt.Errorf("instruction %d: non-native account has balance", i)
			}
			closed[addr] = true
		default:
			return nil, fmt.Errorf("instruction %d: unexpected type %d", i, ix.Data[0])
		}
	}

	return func() {
		kept := f.accounts[:0]
		for _, a := range f.accounts {
			if closed[a.address] {
				continue
			}
			a.amount = amounts[a.address]
			kept = append(kept, a)
		}
		f.accounts = kept
	}, nil
}

func (f *fakeChain) ConfirmTransaction(_ context.Context, sig solana.Signature, _ BlockhashRef) (uint64, error) {
	p, ok := f.pending[sig]
	if !ok {
		return 0, fmt.Errorf("unknown signature %s", sig)
	}
	delete(f.pending, sig)

	if err := f.confirmErrAt[p.index]; err != nil {
		return 0, err
	}
	if p.onChain != nil {
		return 0, fmt.Errorf("%w: %v", config.ErrTxFailed, p.onChain)
	}
	p.apply()
	f.slot++
	return f.slot, nil
}

func (f *fakeChain) sentKinds() []byte {
	out := make([]byte, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.kind
	}
	return out
}

func (f *fakeChain) balanceOf(addr solana.PublicKey) (uint64, bool) {
	a := f.find(addr)
	if a == nil {
		return 0, false
	}
	return a.amount, true
}

func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, config.TokenAccountSize)
	copy(data[config.TokenAccountMintOff:], mint[:])
	copy(data[config.TokenAccountOwnerOff:], owner[:])
	binary.LittleEndian.PutUint64(data[config.TokenAccountAmountOff:], amount)
	return data
}

func newOperator(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey() error = %v", err)
	}
	return key
}

// testAccounts returns n accounts, each of a distinct mint.
func testAccounts(owner solana.PublicKey, n int, amount uint64) []classify.TokenAccount {
	out := make([]classify.TokenAccount, n)
	for i := range out {
		out[i] = classify.TokenAccount{
			Address: solana.NewWallet().PublicKey(),
			Mint:    solana.NewWallet().PublicKey(),
			Owner:   owner,
			Amount:  amount,
		}
	}
	return out
}
