package classify

import "github.com/gagliardetto/solana-go"

// Classify splits decoded accounts into the eligible set (every mint except
// excludedMint) and the burn set (eligible accounts still holding a balance).
// Both keep input order.
func Classify(records []TokenAccount, excludedMint solana.PublicKey) (eligible, burnSet []TokenAccount) {
	for _, r := range records {
		if r.Mint.Equals(excludedMint) {
			continue
		}
		eligible = append(eligible, r)
		if r.Amount > 0 {
			burnSet = append(burnSet, r)
		}
	}
	return eligible, burnSet
}
