package state

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"blocana/internal/crypto"
)

// wireAccountState is the stable CBOR storage shape for AccountState,
// following the same integer-keyed layout as internal/txn and
// internal/block. Storage slots are keyed by hex string since CBOR map
// keys must be a type the codec can compare and sort deterministically;
// a fixed-size byte array key is not portable across CBOR implementations.
type wireAccountState struct {
	Balance uint64            `cbor:"1,keyasint"`
	Nonce   uint64            `cbor:"2,keyasint"`
	Code    []byte            `cbor:"3,keyasint"`
	Storage map[string][]byte `cbor:"4,keyasint"`
}

// Encode serializes an AccountState to its stable CBOR storage encoding.
func (a AccountState) Encode() ([]byte, error) {
	w := wireAccountState{
		Balance: a.Balance,
		Nonce:   a.Nonce,
		Code:    a.Code,
	}
	if len(a.Storage) > 0 {
		w.Storage = make(map[string][]byte, len(a.Storage))
		for k, v := range a.Storage {
			w.Storage[hex.EncodeToString(k[:])] = v
		}
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return b, nil
}

// DecodeAccountState deserializes an AccountState previously produced by
// Encode.
func DecodeAccountState(b []byte) (AccountState, error) {
	var w wireAccountState
	if err := cbor.Unmarshal(b, &w); err != nil {
		return AccountState{}, fmt.Errorf("state: decode: %w", err)
	}
	a := AccountState{Balance: w.Balance, Nonce: w.Nonce, Code: w.Code}
	if len(w.Storage) > 0 {
		a.Storage = make(map[crypto.Hash][]byte, len(w.Storage))
		for k, v := range w.Storage {
			raw, err := hex.DecodeString(k)
			if err != nil || len(raw) != crypto.HashSize {
				return AccountState{}, fmt.Errorf("state: decode: invalid storage key %q", k)
			}
			var h crypto.Hash
			copy(h[:], raw)
			a.Storage[h] = v
		}
	}
	return a, nil
}
