// Package txn implements the Blocana transfer transaction: its canonical
// signing preimage, structural validation, signature handling, and the
// fee/size estimates the mempool prices transactions by.
package txn

import (
	"encoding/binary"
	"fmt"

	"blocana/internal/crypto"
)

// Version is the only transaction format version this node accepts.
const Version uint8 = 1

// MaxDataSize is the maximum length of the transaction's opaque data field.
const MaxDataSize = 10 * 1024 // 10 KiB

// fixedPreimageSize is the length of the signing preimage before the
// variable-length data field: version(1) + sender(32) + recipient(32) +
// amount(8) + fee(8) + nonce(8) + data_length(4).
const fixedPreimageSize = 1 + 32 + 32 + 8 + 8 + 8 + 4

// EstimateSizeOverhead is the fixed overhead added to len(data) when
// pricing a transaction: version + sender + recipient + amount + fee +
// nonce + data-length-prefix + signature, matching the "161 + len(data)"
// pricing basis used throughout the mempool and fee-error reporting.
const EstimateSizeOverhead = 161

// Transaction is a signed transfer of value from sender to recipient.
type Transaction struct {
	Version   uint8
	Sender    crypto.Address
	Recipient crypto.Address
	Amount    uint64
	Fee       uint64
	Nonce     uint64
	Data      []byte
	Signature crypto.Signature
}

// New creates a new unsigned transaction with Version set to the current
// format version.
func New(sender, recipient crypto.Address, amount, fee, nonce uint64, data []byte) *Transaction {
	return &Transaction{
		Version:   Version,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Nonce:     nonce,
		Data:      data,
	}
}

// signingPreimage builds the canonical byte sequence that is hashed and
// signed: version || sender || recipient || amount(LE8) || fee(LE8) ||
// nonce(LE8) || len(data)(LE4) || data.
func (t *Transaction) signingPreimage() []byte {
	buf := make([]byte, 0, fixedPreimageSize+len(t.Data))
	buf = append(buf, t.Version)
	buf = append(buf, t.Sender[:]...)
	buf = append(buf, t.Recipient[:]...)
	buf = appendUint64LE(buf, t.Amount)
	buf = appendUint64LE(buf, t.Fee)
	buf = appendUint64LE(buf, t.Nonce)
	buf = appendUint32LE(buf, uint32(len(t.Data)))
	buf = append(buf, t.Data...)
	return buf
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32LE(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Hash computes the transaction hash: SHA-256 of the signing preimage. It
// is independent of the signature field by construction.
func (t *Transaction) Hash() crypto.Hash {
	return crypto.HashData(t.signingPreimage())
}

// Sign signs the transaction's canonical preimage with the given private
// key and stores the resulting signature.
func (t *Transaction) Sign(priv crypto.PrivateKey) {
	t.Signature = crypto.Sign(priv, t.signingPreimage())
}

// EstimateSize returns the pricing basis for fee-per-byte calculations:
// the fixed-field overhead plus the length of the opaque data field.
func (t *Transaction) EstimateSize() int {
	return EstimateSizeOverhead + len(t.Data)
}

// FeePerByte returns fee / estimate_size, treating a zero estimated size
// (which cannot normally occur) as the fee itself.
func (t *Transaction) FeePerByte() uint64 {
	size := t.EstimateSize()
	if size == 0 {
		return t.Fee
	}
	return t.Fee / uint64(size)
}

// ValidateStructure checks the structural invariants spec.md requires,
// independent of signature verification: version, nonzero amount and fee,
// sender != recipient, data size bound, and amount+fee not overflowing.
func (t *Transaction) ValidateStructure() error {
	if t.Version != Version {
		return fmt.Errorf("%w: version %d, expected %d", ErrInvalidVersion, t.Version, Version)
	}
	if t.Amount == 0 {
		return ErrZeroAmount
	}
	if t.Fee == 0 {
		return ErrZeroFee
	}
	if t.Sender == t.Recipient {
		return ErrSelfTransfer
	}
	if len(t.Data) > MaxDataSize {
		return fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrDataTooLarge, len(t.Data), MaxDataSize)
	}
	total := t.Amount + t.Fee
	if total < t.Amount { // overflow: unsigned wraparound
		return ErrAmountFeeOverflow
	}
	return nil
}

// Verify performs full verification: structural validation followed by
// strict Ed25519 signature verification over the canonical preimage.
func (t *Transaction) Verify() error {
	if err := t.ValidateStructure(); err != nil {
		return err
	}
	if !crypto.Verify(t.Sender, t.signingPreimage(), t.Signature) {
		return ErrInvalidSignature
	}
	return nil
}
