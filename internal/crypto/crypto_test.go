package crypto

import "testing"

func TestHashData(t *testing.T) {
	h1 := HashData([]byte("test data"))
	if h1.IsZero() {
		t.Fatal("hash should not be zero")
	}
	h2 := HashData([]byte("test data"))
	if h1 != h2 {
		t.Error("same data should produce same hash")
	}
	h3 := HashData([]byte("different data"))
	if h1 == h3 {
		t.Error("different data should produce different hash")
	}
}

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if kp.PublicKey == (PublicKey{}) {
		t.Error("public key should not be zero")
	}
	if kp.PrivateKey == (PrivateKey{}) {
		t.Error("private key should not be zero")
	}
}

func TestSignAndVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	message := []byte("This is a test message")
	sig := kp.Sign(message)

	if !Verify(kp.PublicKey, message, sig) {
		t.Error("valid signature failed to verify")
	}

	modified := []byte("This is a MODIFIED message")
	if Verify(kp.PublicKey, modified, sig) {
		t.Error("signature should not verify against a modified message")
	}
}

func TestKeyPairFromPrivateKeyRoundtrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	rebuilt := KeyPairFromPrivateKey(kp.PrivateKey)
	if rebuilt.PublicKey != kp.PublicKey {
		t.Error("rebuilt public key should match original")
	}
}

func TestMerkleRoot(t *testing.T) {
	if got := MerkleRoot(nil); got != (Hash{}) {
		t.Errorf("empty merkle root = %x, want zero hash", got)
	}

	h1 := HashData([]byte("leaf1"))
	if got := MerkleRoot([]Hash{h1}); got != h1 {
		t.Errorf("singleton merkle root = %x, want %x", got, h1)
	}

	h2 := HashData([]byte("leaf2"))
	h3 := HashData([]byte("leaf3"))
	h4 := HashData([]byte("leaf4"))

	node1 := HashPair(h1, h2)
	node2 := HashPair(h3, h4)
	want := HashPair(node1, node2)

	got := MerkleRoot([]Hash{h1, h2, h3, h4})
	if got != want {
		t.Errorf("merkle root = %x, want %x", got, want)
	}
}

func TestMerkleRootOddDuplicatesLast(t *testing.T) {
	h1 := HashData([]byte("leaf1"))
	h2 := HashData([]byte("leaf2"))
	h3 := HashData([]byte("leaf3"))

	// Odd level duplicates h3 to pair with itself.
	node1 := HashPair(h1, h2)
	node2 := HashPair(h3, h3)
	want := HashPair(node1, node2)

	got := MerkleRoot([]Hash{h1, h2, h3})
	if got != want {
		t.Errorf("merkle root = %x, want %x", got, want)
	}
}

func TestHMACSHA256(t *testing.T) {
	key := []byte("secret key")
	message := []byte("test message")

	m1 := HMACSHA256(key, message)
	m2 := HMACSHA256(key, message)
	if m1 != m2 {
		t.Error("same inputs should produce same HMAC")
	}

	m3 := HMACSHA256(key, []byte("different message"))
	if m1 == m3 {
		t.Error("different messages should produce different HMACs")
	}

	m4 := HMACSHA256([]byte("different key"), message)
	if m1 == m4 {
		t.Error("different keys should produce different HMACs")
	}
}

func TestBatchVerify(t *testing.T) {
	kp1, _ := GenerateKeyPair()
	kp2, _ := GenerateKeyPair()
	kp3, _ := GenerateKeyPair()

	msg1, msg2, msg3 := []byte("message 1"), []byte("message 2"), []byte("message 3")
	sig1, sig2, sig3 := kp1.Sign(msg1), kp2.Sign(msg2), kp3.Sign(msg3)

	err := BatchVerify([]BatchVerifyInput{
		{Message: msg1, Signature: sig1, PublicKey: kp1.PublicKey},
		{Message: msg2, Signature: sig2, PublicKey: kp2.PublicKey},
		{Message: msg3, Signature: sig3, PublicKey: kp3.PublicKey},
	})
	if err != nil {
		t.Fatalf("BatchVerify: %v", err)
	}

	err = BatchVerify([]BatchVerifyInput{
		{Message: msg1, Signature: sig1, PublicKey: kp1.PublicKey},
		{Message: msg2, Signature: sig3, PublicKey: kp2.PublicKey}, // wrong signature
		{Message: msg3, Signature: sig2, PublicKey: kp3.PublicKey},
	})
	var bverr *BatchVerifyError
	if err == nil {
		t.Fatal("expected batch verify error")
	}
	if !asBatchVerifyError(err, &bverr) || bverr.Index != 1 {
		t.Errorf("expected failure at index 1, got %v", err)
	}
}

func asBatchVerifyError(err error, target **BatchVerifyError) bool {
	if e, ok := err.(*BatchVerifyError); ok {
		*target = e
		return true
	}
	return false
}
