// Package state implements per-address account state and the
// BlockchainState that applies transactions and blocks to it under the
// nonce/balance invariants the mempool also enforces.
package state

import (
	"fmt"

	"blocana/internal/block"
	"blocana/internal/crypto"
	"blocana/internal/txn"
)

// AccountState is the current {balance, nonce} plus optional smart
// contract fields for an address. Only balance and nonce participate in
// current consensus; code/storage are carried for forward compatibility.
type AccountState struct {
	Balance uint64
	Nonce   uint64
	Code    []byte
	Storage map[crypto.Hash][]byte
}

// NewAccountState returns the zero account state.
func NewAccountState() AccountState {
	return AccountState{}
}

// WithBalance returns an account state with the given starting balance
// and zero nonce, used when seeding genesis balances.
func WithBalance(balance uint64) AccountState {
	return AccountState{Balance: balance}
}

// BlockchainState is the mapping from address to AccountState. It is
// owned exclusively by the validating node and mutated only through
// ApplyTransaction / ApplyBlock. Missing addresses are implicitly the
// zero account state; BlockchainState is not safe for concurrent use —
// callers that share it across goroutines must provide their own
// synchronization (see internal/chain).
type BlockchainState struct {
	accounts map[crypto.Address]AccountState
}

// New returns an empty BlockchainState.
func New() *BlockchainState {
	return &BlockchainState{accounts: make(map[crypto.Address]AccountState)}
}

// NewGenesis seeds a BlockchainState with the given initial balances.
func NewGenesis(initialBalances map[crypto.Address]uint64) *BlockchainState {
	s := New()
	for addr, balance := range initialBalances {
		s.accounts[addr] = WithBalance(balance)
	}
	return s
}

// Get returns the account state for address, or the zero value if the
// address has never been touched.
func (s *BlockchainState) Get(address crypto.Address) AccountState {
	return s.accounts[address]
}

// Set overwrites the account state for address.
func (s *BlockchainState) Set(address crypto.Address, account AccountState) {
	s.accounts[address] = account
}

// Accounts returns a snapshot copy of every tracked address's state.
// Intended for diagnostics; callers must not assume live aliasing.
func (s *BlockchainState) Accounts() map[crypto.Address]AccountState {
	out := make(map[crypto.Address]AccountState, len(s.accounts))
	for k, v := range s.accounts {
		out[k] = v
	}
	return out
}

// ApplyTransaction applies a single transfer to the state:
//  1. locate or default-construct the sender account;
//  2. require tx.Nonce == sender.Nonce;
//  3. require sender.Balance >= amount+fee;
//  4. deduct amount+fee from sender, increment sender's nonce;
//  5. credit amount to the recipient (created if absent).
//
// Fees are not transferred to a validator account here; spec.md §9
// leaves fee collection unresolved and no counter is maintained by this
// core (see DESIGN.md).
func (s *BlockchainState) ApplyTransaction(tx *txn.Transaction) error {
	sender := s.accounts[tx.Sender]

	if tx.Nonce != sender.Nonce {
		return &InvalidNonceError{Sender: tx.Sender, Expected: sender.Nonce, Actual: tx.Nonce}
	}

	total := tx.Amount + tx.Fee // ValidateStructure already ruled out overflow
	if sender.Balance < total {
		return &InsufficientBalanceError{Sender: tx.Sender, Balance: sender.Balance, Required: total}
	}

	sender.Balance -= total
	sender.Nonce++
	s.accounts[tx.Sender] = sender

	recipient := s.accounts[tx.Recipient]
	recipient.Balance = saturatingAdd(recipient.Balance, tx.Amount)
	s.accounts[tx.Recipient] = recipient

	return nil
}

// ApplyBlock applies a block's transactions in on-disk order. A mid-block
// failure is fatal for that application: this core performs no partial
// rollback. Callers are expected to validate the block before applying it
// (see block.Block.Validate).
func (s *BlockchainState) ApplyBlock(b *block.Block) error {
	for i, tx := range b.Transactions {
		if err := s.ApplyTransaction(tx); err != nil {
			return fmt.Errorf("state: apply block at height %d, tx %d: %w", b.Header.Height, i, err)
		}
	}
	return nil
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a { // overflow
		return ^uint64(0)
	}
	return sum
}
