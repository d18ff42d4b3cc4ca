package state

import (
	"fmt"

	"blocana/internal/crypto"
)

// InvalidNonceError reports a transaction whose nonce does not match the
// sender's expected next nonce.
type InvalidNonceError struct {
	Sender   crypto.Address
	Expected uint64
	Actual   uint64
}

func (e *InvalidNonceError) Error() string {
	return fmt.Sprintf("state: invalid nonce for %s: expected %d, got %d", e.Sender, e.Expected, e.Actual)
}

// InsufficientBalanceError reports a sender whose balance cannot cover
// amount+fee.
type InsufficientBalanceError struct {
	Sender   crypto.Address
	Balance  uint64
	Required uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("state: insufficient balance for %s: has %d, needs %d", e.Sender, e.Balance, e.Required)
}
