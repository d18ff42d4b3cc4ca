package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"blocana/internal/crypto"
)

// TxLocation records where a transaction lives: which block, and at what
// index within that block's transaction list. Grounded on the original
// implementation's storage::TxLocation (original_source/src/storage/mod.rs).
type TxLocation struct {
	BlockHash crypto.Hash
	Index     uint32
}

type wireTxLocation struct {
	BlockHash []byte `cbor:"1,keyasint"`
	Index     uint32 `cbor:"2,keyasint"`
}

// Encode serializes a TxLocation to its stable CBOR storage encoding.
func (l TxLocation) Encode() ([]byte, error) {
	w := wireTxLocation{BlockHash: l.BlockHash[:], Index: l.Index}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("store: encode tx location: %w", err)
	}
	return b, nil
}

// DecodeTxLocation deserializes a TxLocation previously produced by Encode.
func DecodeTxLocation(b []byte) (TxLocation, error) {
	var w wireTxLocation
	if err := cbor.Unmarshal(b, &w); err != nil {
		return TxLocation{}, fmt.Errorf("store: decode tx location: %w", err)
	}
	if len(w.BlockHash) != crypto.HashSize {
		return TxLocation{}, fmt.Errorf("store: decode tx location: invalid hash length")
	}
	var loc TxLocation
	copy(loc.BlockHash[:], w.BlockHash)
	loc.Index = w.Index
	return loc, nil
}
