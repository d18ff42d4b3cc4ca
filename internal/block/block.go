// Package block implements the Blocana block header and block: Merkle
// computation, header signing/verification, and block-level validation.
package block

import (
	"encoding/binary"
	"fmt"
	"time"

	"blocana/internal/crypto"
	"blocana/internal/txn"
)

// Version is the only block format version this node accepts.
const Version uint8 = 1

// headerPreimageSize is the length of the header signing preimage:
// version(1) + prev_hash(32) + merkle_root(32) + timestamp(8) + height(8)
// + validator(32).
const headerPreimageSize = 1 + 32 + 32 + 8 + 8 + 32

// Header is a block header: everything needed to identify and verify a
// block without its transaction bodies.
type Header struct {
	Version     uint8
	PrevHash    crypto.Hash
	MerkleRoot  crypto.Hash
	Timestamp   uint64 // milliseconds since Unix epoch
	Height      uint64
	Validator   crypto.Address
	Signature   crypto.Signature
}

// signingPreimage builds the canonical byte sequence that is hashed and
// signed: version || prev_hash || merkle_root || timestamp(LE8) ||
// height(LE8) || validator. All fields are fixed-width, so no length
// prefix is needed.
func (h *Header) signingPreimage() []byte {
	buf := make([]byte, 0, headerPreimageSize)
	buf = append(buf, h.Version)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	var ts, height [8]byte
	binary.LittleEndian.PutUint64(ts[:], h.Timestamp)
	binary.LittleEndian.PutUint64(height[:], h.Height)
	buf = append(buf, ts[:]...)
	buf = append(buf, height[:]...)
	buf = append(buf, h.Validator[:]...)
	return buf
}

// Hash computes the header hash: SHA-256 of the signing preimage.
func (h *Header) Hash() crypto.Hash {
	return crypto.HashData(h.signingPreimage())
}

// Sign signs the header's canonical preimage with the validator's private
// key and stores the resulting signature.
func (h *Header) Sign(priv crypto.PrivateKey) {
	h.Signature = crypto.Sign(priv, h.signingPreimage())
}

// VerifySignature checks the header signature against h.Validator.
func (h *Header) VerifySignature() bool {
	return crypto.Verify(h.Validator, h.signingPreimage(), h.Signature)
}

// Block is a block header plus its ordered transactions.
type Block struct {
	Header       Header
	Transactions []*txn.Transaction
}

// nowMillis returns the current time in milliseconds since Unix epoch.
var nowMillis = func() uint64 {
	return uint64(time.Now().UnixMilli())
}

// New builds an unsigned block: it stamps the current timestamp and
// computes the Merkle root over the given transactions' hashes. Callers
// must call Header.Sign afterward.
func New(prevHash crypto.Hash, height uint64, transactions []*txn.Transaction, validator crypto.Address) *Block {
	return &Block{
		Header: Header{
			Version:    Version,
			PrevHash:   prevHash,
			MerkleRoot: merkleRootOf(transactions),
			Timestamp:  nowMillis(),
			Height:     height,
			Validator:  validator,
		},
		Transactions: transactions,
	}
}

// Genesis builds the height-0 genesis block: prev_hash is the all-zero
// hash by definition.
func Genesis(transactions []*txn.Transaction, validator crypto.Address) *Block {
	return New(crypto.ZeroHash, 0, transactions, validator)
}

func merkleRootOf(transactions []*txn.Transaction) crypto.Hash {
	hashes := make([]crypto.Hash, len(transactions))
	for i, tx := range transactions {
		hashes[i] = tx.Hash()
	}
	return crypto.MerkleRoot(hashes)
}

// Hash returns the block's header hash.
func (b *Block) Hash() crypto.Hash {
	return b.Header.Hash()
}

// Validate recomputes the Merkle root, verifies the header signature, and
// verifies every transaction. It never mutates the block or any external
// state.
func (b *Block) Validate() error {
	computed := merkleRootOf(b.Transactions)
	if computed != b.Header.MerkleRoot {
		return fmt.Errorf("%w: merkle root mismatch: computed %s, header %s",
			ErrInvalidBlock, computed, b.Header.MerkleRoot)
	}

	if !b.Header.VerifySignature() {
		return fmt.Errorf("%w: header signature verification failed", ErrInvalidBlock)
	}

	if b.Header.Height == 0 {
		if !b.Header.PrevHash.IsZero() {
			return fmt.Errorf("%w: genesis block must have zero prev_hash", ErrInvalidBlock)
		}
	}

	for i, tx := range b.Transactions {
		if err := tx.Verify(); err != nil {
			return fmt.Errorf("%w: transaction %d: %v", ErrInvalidBlock, i, err)
		}
	}

	return nil
}
