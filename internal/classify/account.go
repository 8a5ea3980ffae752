// Package classify decodes SPL token accounts and splits them into close and burn sets.
package classify

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/Fantasim/splreaper/internal/config"
)

// RawAccount is a token account as returned by the network: its address and
// the owner program's raw account data.
type RawAccount struct {
	Address solana.PublicKey
	Data    []byte
}

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Address solana.PublicKey
	Data    []byte
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// DecodeTokenAccount reads mint, owner and amount from the fixed SPL token
// account layout. Data shorter than the account size is rejected.
func DecodeTokenAccount(address solana.PublicKey, data []byte) (TokenAccount, error) {
	if len(data) < config.TokenAccountSize {
		return TokenAccount{}, fmt.Errorf("%w: account %s has %d bytes, want at least %d",
			config.ErrMalformedAccount, address, len(data), config.TokenAccountSize)
	}

	dec := bin.NewBinDecoder(data)

	mint, err := readPublicKey(dec, config.TokenAccountMintOff)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("%w: account %s mint: %v", config.ErrMalformedAccount, address, err)
	}

	owner, err := readPublicKey(dec, config.TokenAccountOwnerOff)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("%w: account %s owner: %v", config.ErrMalformedAccount, address, err)
	}

	if err := dec.SetPosition(config.TokenAccountAmountOff); err != nil {
		return TokenAccount{}, fmt.Errorf("%w: account %s amount: %v", config.ErrMalformedAccount, address, err)
	}
	amount, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("%w: account %s amount: %v", config.ErrMalformedAccount, address, err)
	}

	return TokenAccount{
		Address: address,
		Data:    data,
		Mint:    mint,
		Owner:   owner,
		Amount:  amount,
	}, nil
}

func readPublicKey(dec *bin.Decoder, offset uint) (solana.PublicKey, error) {
	if err := dec.SetPosition(offset); err != nil {
		return solana.PublicKey{}, err
	}
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// DecodeAll decodes every raw account. The first failure aborts the whole
// batch: a run never proceeds on a partial inventory.
func DecodeAll(raw []RawAccount) ([]TokenAccount, error) {
	out := make([]TokenAccount, 0, len(raw))
	for _, r := range raw {
		acct, err := DecodeTokenAccount(r.Address, r.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}
