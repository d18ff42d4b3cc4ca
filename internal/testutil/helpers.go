package testutil

import (
	"encoding/hex"
	"testing"

	"blocana/internal/crypto"
)

// MustDecodeHex decodes hex or fails the test.
func MustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}

// HashFromHex converts a hex string to a crypto.Hash, zero-padding if
// the decoded string is shorter than 32 bytes.
func HashFromHex(s string) crypto.Hash {
	b, _ := hex.DecodeString(s)
	var h crypto.Hash
	copy(h[:], b)
	return h
}
