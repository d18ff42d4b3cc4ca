package testutil

import (
	"blocana/internal/block"
	"blocana/internal/crypto"
	"blocana/internal/state"
	"blocana/internal/txn"
)

// SampleKeyPair returns a fresh Ed25519 key pair for tests that don't
// care which key they get, only that it is valid.
func SampleKeyPair() *crypto.KeyPair {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		panic(err)
	}
	return kp
}

// SampleTransaction builds an unsigned transfer from sender to a fresh
// recipient key.
func SampleTransaction(sender *crypto.KeyPair, amount, fee, nonce uint64) *txn.Transaction {
	recipient := SampleKeyPair()
	return txn.New(sender.PublicKey, recipient.PublicKey, amount, fee, nonce, nil)
}

// SampleSignedTransaction builds and signs a transfer from sender.
func SampleSignedTransaction(sender *crypto.KeyPair, amount, fee, nonce uint64) *txn.Transaction {
	tx := SampleTransaction(sender, amount, fee, nonce)
	tx.Sign(sender.PrivateKey)
	return tx
}

// SampleGenesisBlock builds and signs a genesis block carrying the given
// transactions.
func SampleGenesisBlock(validator *crypto.KeyPair, transactions []*txn.Transaction) *block.Block {
	b := block.Genesis(transactions, validator.PublicKey)
	b.Header.Sign(validator.PrivateKey)
	return b
}

// SampleChildBlock builds and signs a block extending prev.
func SampleChildBlock(validator *crypto.KeyPair, prev *block.Block, transactions []*txn.Transaction) *block.Block {
	b := block.New(prev.Hash(), prev.Header.Height+1, transactions, validator.PublicKey)
	b.Header.Sign(validator.PrivateKey)
	return b
}

// SampleBlockChain builds a linear chain of count blocks, each carrying
// one signed transfer from sender so the chain also exercises nonce
// progression. Callers must seed sender's starting balance separately
// (e.g. via state.WithBalance) before applying the chain.
func SampleBlockChain(validator, sender *crypto.KeyPair, count int) []*block.Block {
	blocks := make([]*block.Block, count)
	var prev *block.Block

	for i := 0; i < count; i++ {
		tx := SampleSignedTransaction(sender, 10, 1, uint64(i))
		var b *block.Block
		if prev == nil {
			b = SampleGenesisBlock(validator, []*txn.Transaction{tx})
		} else {
			b = SampleChildBlock(validator, prev, []*txn.Transaction{tx})
		}
		blocks[i] = b
		prev = b
	}

	return blocks
}

// SampleAccountState returns an account state with the given balance and
// nonce, for seeding a BlockchainState in tests.
func SampleAccountState(balance, nonce uint64) state.AccountState {
	acc := state.WithBalance(balance)
	acc.Nonce = nonce
	return acc
}
