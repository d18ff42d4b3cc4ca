package chain

import (
	"blocana/internal/block"
	"blocana/internal/crypto"
	"blocana/internal/txn"
)

// Consensus decides when and how blocks are produced. spec.md §9
// describes it only as an interface; implementations (e.g. an
// elapsed-time PoET-style timer) are a collaborator concern out of this
// core's scope.
type Consensus interface {
	Initialize() error
	Start() error
	Stop() error
	GenerateBlock(prevHash crypto.Hash, height uint64, txs []*txn.Transaction, validator crypto.Address) (*block.Block, error)
	ValidateBlock(b *block.Block) error
	ShouldProduceBlock() bool
	IsRunning() bool
}

// Network broadcasts blocks and transactions and delivers inbound
// traffic to the mempool and ledger+state pipeline, per spec.md §6.
type Network interface {
	BroadcastBlock(b *block.Block) error
	BroadcastTransaction(tx *txn.Transaction) error
	Start() error
	Stop() error
}
