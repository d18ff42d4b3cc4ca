package chain

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"blocana/internal/block"
	"blocana/internal/crypto"
	"blocana/internal/mempool"
	"blocana/internal/state"
	"blocana/internal/store"
	"blocana/internal/store/migration"
	"blocana/internal/txn"
)

// Blockchain is the node's facade: it owns the ledger store, the
// in-memory BlockchainState, and the mempool, and wires an optional
// Consensus and Network collaborator. It is the C9 glue layer spec.md
// §6 describes.
type Blockchain struct {
	cfg Config

	Store   *store.Store
	State   *state.BlockchainState
	Mempool *mempool.Pool

	Consensus Consensus
	Network   Network

	logger  *zap.Logger
	limiter *senderLimiter
}

// migrationRegistry registers the single bootstrap migration (absent
// schema ⇒ version 1, the only version this build knows). Real forward
// migrations would be registered here as the on-disk format evolves.
func migrationRegistry() *migration.Registry {
	r := migration.NewRegistry()
	r.Register(migration.Step{
		From: 0,
		To:   migration.CurrentSchemaVersion,
		Apply: func(tx *bolt.Tx) error {
			return nil // nothing to transform for the first schema version
		},
	})
	return r
}

// Open opens the ledger store, ensures its schema is current, and creates
// an empty BlockchainState and an empty mempool. Account states held in
// the store are not loaded into BlockchainState.
func Open(cfg Config, logger *zap.Logger) (*Blockchain, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.Open(cfg.Storage.toStoreConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("chain: open store: %w", err)
	}

	if err := migrationRegistry().EnsureCompatibleSchema(st.DB(), migration.CurrentSchemaVersion, nil, logger); err != nil {
		st.Close()
		return nil, fmt.Errorf("chain: schema migration: %w", err)
	}

	bc := &Blockchain{
		cfg:     cfg,
		Store:   st,
		State:   state.New(),
		Mempool: mempool.New(cfg.Mempool.toMempoolConfig()),
		logger:  logger,
		limiter: newSenderLimiter(),
	}
	return bc, nil
}

// Close releases the underlying store.
func (bc *Blockchain) Close() error {
	return bc.Store.Close()
}

// SetConsensus wires a Consensus implementation.
func (bc *Blockchain) SetConsensus(c Consensus) { bc.Consensus = c }

// SetNetwork wires a Network implementation.
func (bc *Blockchain) SetNetwork(n Network) { bc.Network = n }

// SubmitTransaction admits a transaction to the mempool, validating it
// against the current in-memory state.
func (bc *Blockchain) SubmitTransaction(tx *txn.Transaction) (crypto.Hash, error) {
	if !bc.limiter.allow(tx.Sender) {
		return crypto.Hash{}, rateLimitedErr(tx.Sender)
	}
	return bc.Mempool.AddTransaction(tx, bc.State)
}

// ProduceBlock selects up to maxTxs transactions from the mempool,
// builds and signs a block with them, and returns it without storing or
// applying it — callers decide when to commit via ApplyBlock.
func (bc *Blockchain) ProduceBlock(maxTxs int, validatorKey *crypto.KeyPair) (*block.Block, error) {
	genesisBlock, haveGenesis, err := bc.Store.GetBlockByHeight(0)
	if err != nil {
		return nil, fmt.Errorf("chain: produce block: %w", err)
	}

	var prevHash crypto.Hash
	var nextHeight uint64
	if !haveGenesis {
		nextHeight = 0 // this is the first block; it becomes genesis
	} else {
		height, err := bc.Store.GetLatestHeight()
		if err != nil {
			return nil, fmt.Errorf("chain: produce block: %w", err)
		}
		tipBlock := genesisBlock
		if height > 0 {
			var found bool
			tipBlock, found, err = bc.Store.GetBlockByHeight(height)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, fmt.Errorf("chain: produce block: missing block at height %d", height)
			}
		}
		prevHash = tipBlock.Hash()
		nextHeight = height + 1
	}

	txs := bc.Mempool.SelectTransactions(maxTxs, bc.State)

	var b *block.Block
	if nextHeight == 0 {
		b = block.Genesis(txs, validatorKey.PublicKey)
	} else {
		b = block.New(prevHash, nextHeight, txs, validatorKey.PublicKey)
	}
	b.Header.Sign(validatorKey.PrivateKey)
	return b, nil
}

// ApplyBlock validates a block, stores it durably, applies it to
// BlockchainState, and revalidates the remaining mempool contents, in
// the order spec.md §2's data-flow diagram describes. State is left
// untouched if validation fails.
func (bc *Blockchain) ApplyBlock(b *block.Block) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("chain: apply block: %w", err)
	}
	if err := bc.Store.StoreBlock(b); err != nil {
		return fmt.Errorf("chain: apply block: %w", err)
	}
	if err := bc.State.ApplyBlock(b); err != nil {
		return fmt.Errorf("chain: apply block: %w", err)
	}

	for _, tx := range b.Transactions {
		bc.Mempool.RemoveTransaction(tx.Hash())
	}
	bc.Mempool.RevalidateTransactions(bc.State)
	bc.Mempool.PerformMaintenance()

	bc.logger.Info("applied block",
		zap.Uint64("height", b.Header.Height),
		zap.Int("transactions", len(b.Transactions)))
	return nil
}
