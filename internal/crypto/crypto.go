// Package crypto provides the fixed-width primitive types and cryptographic
// operations (Ed25519 signing/verification, SHA-256 hashing, Merkle roots,
// HMAC) shared by the rest of Blocana.
package crypto

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fixed-width wire types. All integers elsewhere are little-endian.
const (
	HashSize      = 32
	PublicKeySize = 32
	AddressSize   = 32
	PrivateKeySize = 32
	SignatureSize = 64
)

// Hash is a 32-byte SHA-256 digest.
type Hash [HashSize]byte

// PublicKey is an Ed25519 public key, also used as an Address.
type PublicKey [PublicKeySize]byte

// Address is an alias of PublicKey; accounts are identified by their key.
type Address = PublicKey

// PrivateKey is the 32-byte Ed25519 seed (not the expanded 64-byte key).
type PrivateKey [PrivateKeySize]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// ZeroHash is the all-zero hash used for genesis prev_hash.
var ZeroHash = Hash{}

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the lowercase hex encoding of the public key.
func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// HashFromHex parses a 64-character hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("crypto: invalid hex hash: %w", err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("crypto: invalid hash length %d, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// AddressFromHex parses a 64-character hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("crypto: invalid hex address: %w", err)
	}
	if len(b) != AddressSize {
		return a, fmt.Errorf("crypto: invalid address length %d, want %d", len(b), AddressSize)
	}
	copy(a[:], b)
	return a, nil
}

// KeyPair couples an Ed25519 private seed with its derived public key.
type KeyPair struct {
	PublicKey  PublicKey
	PrivateKey PrivateKey

	expanded ed25519.PrivateKey
}

// GenerateKeyPair creates a new random Ed25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key pair: %w", err)
	}
	return keyPairFromExpanded(pub, priv), nil
}

// KeyPairFromPrivateKey rebuilds a KeyPair from a 32-byte seed.
func KeyPairFromPrivateKey(priv PrivateKey) *KeyPair {
	expanded := ed25519.NewKeyFromSeed(priv[:])
	pub := expanded.Public().(ed25519.PublicKey)
	return keyPairFromExpanded(pub, expanded)
}

func keyPairFromExpanded(pub ed25519.PublicKey, expanded ed25519.PrivateKey) *KeyPair {
	kp := &KeyPair{expanded: expanded}
	copy(kp.PublicKey[:], pub)
	copy(kp.PrivateKey[:], expanded.Seed())
	return kp
}

// Sign produces a signature over message using this key pair.
func (kp *KeyPair) Sign(message []byte) Signature {
	sig := ed25519.Sign(kp.expanded, message)
	var s Signature
	copy(s[:], sig)
	return s
}

// Sign signs message with the given 32-byte private key seed.
func Sign(priv PrivateKey, message []byte) Signature {
	kp := KeyPairFromPrivateKey(priv)
	return kp.Sign(message)
}

// Verify performs strict Ed25519 verification of sig over message under pub.
// ed25519.Verify rejects non-canonical S values and public keys that are
// not points on the curve; it does not reject small-order public keys.
func Verify(pub PublicKey, message []byte, sig Signature) bool {
	return ed25519.Verify(pub[:], message, sig[:])
}

// HashData computes the SHA-256 digest of data.
func HashData(data []byte) Hash {
	return sha256.Sum256(data)
}

// HashPair computes SHA256(left || right), the Merkle tree internal-node hash.
func HashPair(left, right Hash) Hash {
	buf := make([]byte, 0, 2*HashSize)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sha256.Sum256(buf)
}

// MerkleRoot computes the Merkle root of an ordered sequence of leaf hashes.
// The empty sequence roots to the all-zero hash; a singleton roots to
// itself. Odd levels duplicate the last hash before pairing.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return Hash{}
	}
	level := make([]Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = HashPair(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}

// HMACSHA256 computes a keyed HMAC-SHA256 over message.
func HMACSHA256(key, message []byte) Hash {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	var out Hash
	copy(out[:], mac.Sum(nil))
	return out
}

// BatchVerifyInput is one (message, signature, public key) triple for
// BatchVerify.
type BatchVerifyInput struct {
	Message   []byte
	Signature Signature
	PublicKey PublicKey
}

// BatchVerifyError reports the index of the first invalid entry.
type BatchVerifyError struct {
	Index int
}

func (e *BatchVerifyError) Error() string {
	return fmt.Sprintf("crypto: signature verification failed at index %d", e.Index)
}

// BatchVerify verifies a slice of (message, signature, pubkey) triples,
// failing fast with the index of the first invalid entry. Ed25519 does not
// gain a meaningful speedup from true batch verification in the standard
// library, so this verifies sequentially but keeps the batch-shaped API the
// spec (and the original Rust implementation) expects.
func BatchVerify(inputs []BatchVerifyInput) error {
	for i, in := range inputs {
		if !Verify(in.PublicKey, in.Message, in.Signature) {
			return &BatchVerifyError{Index: i}
		}
	}
	return nil
}
