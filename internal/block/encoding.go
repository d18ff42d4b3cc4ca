package block

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"blocana/internal/crypto"
	"blocana/internal/txn"
)

type wireHeader struct {
	Version    uint8  `cbor:"1,keyasint"`
	PrevHash   []byte `cbor:"2,keyasint"`
	MerkleRoot []byte `cbor:"3,keyasint"`
	Timestamp  uint64 `cbor:"4,keyasint"`
	Height     uint64 `cbor:"5,keyasint"`
	Validator  []byte `cbor:"6,keyasint"`
	Signature  []byte `cbor:"7,keyasint"`
}

type wireBlock struct {
	Header       wireHeader `cbor:"1,keyasint"`
	Transactions [][]byte   `cbor:"2,keyasint"` // each entry is a txn.Encode() blob
}

// Encode serializes the block to its stable CBOR storage encoding.
func (b *Block) Encode() ([]byte, error) {
	txs := make([][]byte, len(b.Transactions))
	for i, tx := range b.Transactions {
		enc, err := tx.Encode()
		if err != nil {
			return nil, fmt.Errorf("block: encode tx %d: %w", i, err)
		}
		txs[i] = enc
	}

	w := wireBlock{
		Header: wireHeader{
			Version:    b.Header.Version,
			PrevHash:   b.Header.PrevHash[:],
			MerkleRoot: b.Header.MerkleRoot[:],
			Timestamp:  b.Header.Timestamp,
			Height:     b.Header.Height,
			Validator:  b.Header.Validator[:],
			Signature:  b.Header.Signature[:],
		},
		Transactions: txs,
	}

	out, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("block: encode: %w", err)
	}
	return out, nil
}

// Decode deserializes a block previously produced by Encode.
func Decode(data []byte) (*Block, error) {
	var w wireBlock
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("block: decode: %w", err)
	}

	if len(w.Header.PrevHash) != crypto.HashSize || len(w.Header.MerkleRoot) != crypto.HashSize {
		return nil, fmt.Errorf("block: decode: invalid hash length in header")
	}
	if len(w.Header.Validator) != crypto.AddressSize {
		return nil, fmt.Errorf("block: decode: invalid validator length")
	}
	if len(w.Header.Signature) != crypto.SignatureSize {
		return nil, fmt.Errorf("block: decode: invalid signature length")
	}

	b := &Block{
		Header: Header{
			Version:   w.Header.Version,
			Timestamp: w.Header.Timestamp,
			Height:    w.Header.Height,
		},
	}
	copy(b.Header.PrevHash[:], w.Header.PrevHash)
	copy(b.Header.MerkleRoot[:], w.Header.MerkleRoot)
	copy(b.Header.Validator[:], w.Header.Validator)
	copy(b.Header.Signature[:], w.Header.Signature)

	b.Transactions = make([]*txn.Transaction, len(w.Transactions))
	for i, raw := range w.Transactions {
		tx, err := txn.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("block: decode tx %d: %w", i, err)
		}
		b.Transactions[i] = tx
	}

	return b, nil
}
