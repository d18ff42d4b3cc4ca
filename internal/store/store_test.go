package store

import (
	"path/filepath"
	"testing"

	"blocana/internal/block"
	"blocana/internal/crypto"
	"blocana/internal/state"
	"blocana/internal/txn"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.CacheSize = 0
	return cfg
}

func signedTestTx(t *testing.T, sender, recipient *crypto.KeyPair, amount, fee, nonce uint64) *txn.Transaction {
	t.Helper()
	tx := txn.New(sender.PublicKey, recipient.PublicKey, amount, fee, nonce, nil)
	tx.Sign(sender.PrivateKey)
	return tx
}

// TestStoreBlockAndRetrieve covers T4.
func TestStoreBlockAndRetrieve(t *testing.T) {
	s, err := Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	sender, _ := crypto.GenerateKeyPair()
	recipient, _ := crypto.GenerateKeyPair()
	validator, _ := crypto.GenerateKeyPair()
	tx := signedTestTx(t, sender, recipient, 100, 10, 0)

	b := block.Genesis([]*txn.Transaction{tx}, validator.PublicKey)
	b.Header.Sign(validator.PrivateKey)

	if err := s.StoreBlock(b); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}

	hash := b.Hash()
	got, found, err := s.GetBlock(hash)
	if err != nil || !found {
		t.Fatalf("GetBlock: found=%v err=%v", found, err)
	}
	if got.Header.Height != b.Header.Height {
		t.Errorf("height = %d, want %d", got.Header.Height, b.Header.Height)
	}

	byHeight, found, err := s.GetBlockByHeight(0)
	if err != nil || !found {
		t.Fatalf("GetBlockByHeight: found=%v err=%v", found, err)
	}
	if byHeight.Hash() != hash {
		t.Errorf("block by height hash mismatch")
	}

	gotTx, found, err := s.GetTransaction(tx.Hash())
	if err != nil || !found {
		t.Fatalf("GetTransaction: found=%v err=%v", found, err)
	}
	if gotTx.Hash() != tx.Hash() {
		t.Errorf("retrieved tx hash mismatch")
	}
}

// TestVerifyIntegrityDetectsBrokenLink covers T5/S5.
func TestVerifyIntegrityDetectsBrokenLink(t *testing.T) {
	s, err := Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	validator, _ := crypto.GenerateKeyPair()

	genesis := block.Genesis(nil, validator.PublicKey)
	genesis.Header.Sign(validator.PrivateKey)
	if err := s.StoreBlock(genesis); err != nil {
		t.Fatalf("StoreBlock(genesis): %v", err)
	}

	b1 := block.New(genesis.Hash(), 1, nil, validator.PublicKey)
	b1.Header.Sign(validator.PrivateKey)
	if err := s.StoreBlock(b1); err != nil {
		t.Fatalf("StoreBlock(1): %v", err)
	}

	ok, err := s.VerifyIntegrity()
	if err != nil || !ok {
		t.Fatalf("VerifyIntegrity before corruption: ok=%v err=%v", ok, err)
	}

	var rogue crypto.Hash
	rogue[0] = 0xFF
	b2 := block.New(rogue, 2, nil, validator.PublicKey)
	b2.Header.Sign(validator.PrivateKey)
	if err := s.StoreBlock(b2); err != nil {
		t.Fatalf("StoreBlock(2): %v", err)
	}

	ok, err = s.VerifyIntegrity()
	if err != nil {
		t.Fatalf("VerifyIntegrity: %v", err)
	}
	if ok {
		t.Error("VerifyIntegrity should report false after broken link at height 2")
	}
}

func TestAccountStatePersistence(t *testing.T) {
	s, err := Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	kp, _ := crypto.GenerateKeyPair()

	if _, found, err := s.GetAccountState(kp.PublicKey); err != nil || found {
		t.Fatalf("expected no account state yet: found=%v err=%v", found, err)
	}

	account := state.WithBalance(500)
	if err := s.StoreAccountState(kp.PublicKey, account); err != nil {
		t.Fatalf("StoreAccountState: %v", err)
	}

	got, found, err := s.GetAccountState(kp.PublicKey)
	if err != nil || !found {
		t.Fatalf("GetAccountState: found=%v err=%v", found, err)
	}
	if got.Balance != 500 {
		t.Errorf("balance = %d, want 500", got.Balance)
	}
}

func TestGetLatestHeightEmptyStore(t *testing.T) {
	s, err := Open(testConfig(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	height, err := s.GetLatestHeight()
	if err != nil || height != 0 {
		t.Errorf("GetLatestHeight on empty store = %d, %v, want 0, nil", height, err)
	}

	ok, err := s.VerifyIntegrity()
	if err != nil || !ok {
		t.Errorf("VerifyIntegrity on empty store = %v, %v, want true, nil", ok, err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	validator, _ := crypto.GenerateKeyPair()

	s, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	genesis := block.Genesis(nil, validator.PublicKey)
	genesis.Header.Sign(validator.PrivateKey)
	if err := s.StoreBlock(genesis); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	height, err := reopened.GetLatestHeight()
	if err != nil || height != 0 {
		t.Errorf("height after reopen = %d, %v", height, err)
	}
	_, found, err := reopened.GetBlock(genesis.Hash())
	if err != nil || !found {
		t.Errorf("block not found after reopen: found=%v err=%v", found, err)
	}
}
