package tx

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/Fantasim/splreaper/internal/classify"
	"github.com/Fantasim/splreaper/internal/models"
)

// BuildBurnInstruction burns the full balance of acct, signed by owner.
func BuildBurnInstruction(acct classify.TokenAccount, owner solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewBurnInstruction(acct.Amount, acct.Address, acct.Mint, owner, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("burn instruction for %s: %w", acct.Address, err)
	}
	return ix, nil
}

// BuildCloseInstruction closes acct and returns its rent to owner.
func BuildCloseInstruction(acct classify.TokenAccount, owner solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewCloseAccountInstruction(acct.Address, owner, owner, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("close instruction for %s: %w", acct.Address, err)
	}
	return ix, nil
}

// BuildInstructions returns one instruction per account, in batch order.
func BuildInstructions(phase models.Phase, batch []classify.TokenAccount, owner solana.PublicKey) ([]solana.Instruction, error) {
	var build func(classify.TokenAccount, solana.PublicKey) (solana.Instruction, error)
	switch phase {
	case models.PhaseBurn:
		build = BuildBurnInstruction
	case models.PhaseClose:
		build = BuildCloseInstruction
	default:
		return nil, fmt.Errorf("unknown phase %q", phase)
	}

	out := make([]solana.Instruction, 0, len(batch))
	for _, acct := range batch {
		ix, err := build(acct, owner)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}
