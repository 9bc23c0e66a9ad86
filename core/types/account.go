package types

import "math/big"

// Account holds the spendable balance for a marketplace principal. Authors,
// readers, stakers, the platform treasury and per-book pool vaults are all
// represented the same way.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// NewAccount returns an account with a zeroed balance.
func NewAccount() *Account {
	return &Account{Balance: big.NewInt(0)}
}
