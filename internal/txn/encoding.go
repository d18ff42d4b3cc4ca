package txn

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"blocana/internal/crypto"
)

// wireTransaction is the CBOR-on-the-wire shape, using integer map keys the
// same way the teacher's P2P messages do (compact, stable across versions).
type wireTransaction struct {
	Version   uint8  `cbor:"1,keyasint"`
	Sender    []byte `cbor:"2,keyasint"`
	Recipient []byte `cbor:"3,keyasint"`
	Amount    uint64 `cbor:"4,keyasint"`
	Fee       uint64 `cbor:"5,keyasint"`
	Nonce     uint64 `cbor:"6,keyasint"`
	Data      []byte `cbor:"7,keyasint"`
	Signature []byte `cbor:"8,keyasint"`
}

// Encode serializes the transaction to its stable CBOR storage encoding.
func (t *Transaction) Encode() ([]byte, error) {
	w := wireTransaction{
		Version:   t.Version,
		Sender:    t.Sender[:],
		Recipient: t.Recipient[:],
		Amount:    t.Amount,
		Fee:       t.Fee,
		Nonce:     t.Nonce,
		Data:      t.Data,
		Signature: t.Signature[:],
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("txn: encode: %w", err)
	}
	return b, nil
}

// Decode deserializes a transaction previously produced by Encode.
func Decode(b []byte) (*Transaction, error) {
	var w wireTransaction
	if err := cbor.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("txn: decode: %w", err)
	}
	if len(w.Sender) != crypto.AddressSize || len(w.Recipient) != crypto.AddressSize {
		return nil, fmt.Errorf("txn: decode: invalid address length")
	}
	if len(w.Signature) != crypto.SignatureSize {
		return nil, fmt.Errorf("txn: decode: invalid signature length")
	}
	t := &Transaction{
		Version: w.Version,
		Amount:  w.Amount,
		Fee:     w.Fee,
		Nonce:   w.Nonce,
		Data:    w.Data,
	}
	copy(t.Sender[:], w.Sender)
	copy(t.Recipient[:], w.Recipient)
	copy(t.Signature[:], w.Signature)
	return t, nil
}
