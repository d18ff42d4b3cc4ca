package mempool

import (
	"testing"

	"blocana/internal/crypto"
	"blocana/internal/mempool/poolerr"
	"blocana/internal/state"
	"blocana/internal/txn"
)

func newKeyedAccount(t *testing.T, st *state.BlockchainState, balance uint64) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	st.Set(kp.PublicKey, state.WithBalance(balance))
	return kp
}

func signedTx(t *testing.T, kp *crypto.KeyPair, recipient crypto.Address, amount, fee, nonce uint64) *txn.Transaction {
	t.Helper()
	tx := txn.New(kp.PublicKey, recipient, amount, fee, nonce, nil)
	tx.Sign(kp.PrivateKey)
	return tx
}

// TestLifecycleScenarioS1 mirrors spec.md scenario S1.
func TestLifecycleScenarioS1(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 1000)
	recipientKP, _ := crypto.GenerateKeyPair()

	cfg := DefaultConfig()
	cfg.MinFeePerByte = 0
	p := New(cfg)

	tx := signedTx(t, sender, recipientKP.PublicKey, 100, 10, 0)
	if _, err := p.AddTransaction(tx, st); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	selected := p.SelectTransactions(10, st)
	if len(selected) != 1 {
		t.Fatalf("selected %d transactions, want 1", len(selected))
	}

	if err := st.ApplyTransaction(selected[0]); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}

	if got := st.Get(sender.PublicKey); got.Balance != 890 || got.Nonce != 1 {
		t.Errorf("sender = %+v, want balance=890 nonce=1", got)
	}
	if got := st.Get(recipientKP.PublicKey); got.Balance != 100 {
		t.Errorf("recipient balance = %d, want 100", got.Balance)
	}
}

// TestReplacementGateScenarioS2 mirrors spec.md scenario S2.
func TestReplacementGateScenarioS2(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 1000)
	recipientKP, _ := crypto.GenerateKeyPair()

	cfg := DefaultConfig()
	p := New(cfg)

	original := signedTx(t, sender, recipientKP.PublicKey, 100, 50, 0)
	if _, err := p.AddTransaction(original, st); err != nil {
		t.Fatalf("AddTransaction(original): %v", err)
	}

	tooLow := signedTx(t, sender, recipientKP.PublicKey, 100, 54, 0)
	if _, err := p.AddTransactionWithReplacement(tooLow, st, true); !poolerr.IsFeeError(err) {
		t.Errorf("fee=54 replacement err = %v, want ReplacementFeeTooLow", err)
	}

	accepted := signedTx(t, sender, recipientKP.PublicKey, 100, 55, 0)
	if _, err := p.AddTransactionWithReplacement(accepted, st, true); err != nil {
		t.Errorf("fee=55 replacement should succeed: %v", err)
	}

	higher := signedTx(t, sender, recipientKP.PublicKey, 100, 60, 0)
	if _, err := p.AddTransactionWithReplacement(higher, st, true); err != nil {
		t.Errorf("fee=60 replacement should succeed: %v", err)
	}

	if p.Len() != 1 {
		t.Errorf("pool len = %d, want 1 (replacements collapse to one entry)", p.Len())
	}
}

// TestSelectionPriorityScenarioS3 mirrors spec.md scenario S3.
func TestSelectionPriorityScenarioS3(t *testing.T) {
	st := state.New()
	recipientKP, _ := crypto.GenerateKeyPair()
	a := newKeyedAccount(t, st, 1000)
	b := newKeyedAccount(t, st, 1000)
	c := newKeyedAccount(t, st, 1000)

	p := New(DefaultConfig())

	txA := signedTx(t, a, recipientKP.PublicKey, 10, 200, 0)
	if _, err := p.AddTransaction(txA, st); err != nil {
		t.Fatalf("add A: %v", err)
	}
	txB := signedTx(t, b, recipientKP.PublicKey, 10, 400, 0)
	if _, err := p.AddTransaction(txB, st); err != nil {
		t.Fatalf("add B: %v", err)
	}
	txC := signedTx(t, c, recipientKP.PublicKey, 10, 300, 0)
	if _, err := p.AddTransaction(txC, st); err != nil {
		t.Fatalf("add C: %v", err)
	}

	one := p.SelectTransactions(1, st)
	if len(one) != 1 || one[0].Hash() != txB.Hash() {
		t.Fatalf("select(1) should return B's tx")
	}

	two := p.SelectTransactions(2, st)
	// A (200/161) and C (300/161) share fee-per-byte 1; A arrived first.
	if len(two) != 2 || two[0].Hash() != txB.Hash() || two[1].Hash() != txA.Hash() {
		t.Fatalf("select(2) should return [B, A]")
	}
}

// TestDependencyRespectingSelectionScenarioS4 mirrors spec.md scenario S4.
func TestDependencyRespectingSelectionScenarioS4(t *testing.T) {
	st := state.New()
	recipientKP, _ := crypto.GenerateKeyPair()
	sender, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	st.Set(sender.PublicKey, state.AccountState{Balance: 1000, Nonce: 5})

	p := New(DefaultConfig())

	tx7 := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 7)
	tx6 := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 6)
	tx5 := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 5)

	for _, tx := range []*txn.Transaction{tx7, tx6, tx5} {
		if _, err := p.AddTransaction(tx, st); err != nil {
			t.Fatalf("AddTransaction(nonce=%d): %v", tx.Nonce, err)
		}
	}

	selected := p.SelectTransactions(3, st)
	if len(selected) != 3 {
		t.Fatalf("selected %d, want 3", len(selected))
	}
	for i, want := range []uint64{5, 6, 7} {
		if selected[i].Nonce != want {
			t.Errorf("selected[%d].Nonce = %d, want %d", i, selected[i].Nonce, want)
		}
	}
}

// TestMemoryEvictionScenarioS6 mirrors spec.md scenario S6.
func TestMemoryEvictionScenarioS6(t *testing.T) {
	st := state.New()
	recipientKP, _ := crypto.GenerateKeyPair()

	cfg := DefaultConfig()
	cfg.MaxMemory = 2000 // small enough that ~10 txs of ~161B exceed 75%
	cfg.MaxSize = 1000
	p := New(cfg)

	var lastLen int
	for i := 0; i < 11; i++ {
		sender := newKeyedAccount(t, st, 100000)
		tx := signedTx(t, sender, recipientKP.PublicKey, 10, uint64(10+i), 0)
		if _, err := p.AddTransaction(tx, st); err != nil {
			t.Fatalf("AddTransaction #%d: %v", i, err)
		}
		lastLen = p.Len()
	}

	if p.MemoryUsage() > cfg.MaxMemory {
		t.Errorf("memory usage %d exceeds max %d after admission", p.MemoryUsage(), cfg.MaxMemory)
	}
	if lastLen >= 11 {
		t.Errorf("pool len = %d, expected eviction to have reduced it below 11", lastLen)
	}
}

func TestAddTransactionRejectsDuplicateAndWrongNonce(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 1000)
	recipientKP, _ := crypto.GenerateKeyPair()
	p := New(DefaultConfig())

	tx := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 0)
	if _, err := p.AddTransaction(tx, st); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if _, err := p.AddTransaction(tx, st); !poolerr.IsDuplicate(err) {
		t.Errorf("resubmitting same tx err = %v, want AlreadyExists", err)
	}

	wrongNonce := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 9)
	if _, err := p.AddTransaction(wrongNonce, st); !poolerr.IsNonceError(err) {
		t.Errorf("wrong-nonce tx err = %v, want InvalidNonce", err)
	}
}

func TestAddTransactionRejectsInsufficientBalance(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 5)
	recipientKP, _ := crypto.GenerateKeyPair()
	p := New(DefaultConfig())

	tx := signedTx(t, sender, recipientKP.PublicKey, 100, 10, 0)
	if _, err := p.AddTransaction(tx, st); !poolerr.IsBalanceError(err) {
		t.Errorf("err = %v, want InsufficientBalance", err)
	}
}

// TestRemoveTransactionRestoresBookkeeping exercises T6: after admission
// and removal, len/memory/index return to their pre-admission values.
func TestRemoveTransactionRestoresBookkeeping(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 1000)
	recipientKP, _ := crypto.GenerateKeyPair()
	p := New(DefaultConfig())

	beforeLen, beforeMem := p.Len(), p.MemoryUsage()

	tx := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 0)
	hash, err := p.AddTransaction(tx, st)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if p.Len() != beforeLen+1 {
		t.Fatalf("len after add = %d, want %d", p.Len(), beforeLen+1)
	}

	if !p.RemoveTransaction(hash) {
		t.Fatal("RemoveTransaction reported no-op")
	}
	if p.Len() != beforeLen || p.MemoryUsage() != beforeMem {
		t.Errorf("post-removal len/mem = %d/%d, want %d/%d", p.Len(), p.MemoryUsage(), beforeLen, beforeMem)
	}
	if _, found := p.FindTransactionBySenderAndNonce(sender.PublicKey, 0); found {
		t.Error("FindTransactionBySenderAndNonce still finds removed tx")
	}
}

func TestRemoveExpired(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 1000)
	recipientKP, _ := crypto.GenerateKeyPair()

	cfg := DefaultConfig()
	cfg.ExpiryTime = 100
	p := New(cfg)

	origNow := nowUnix
	defer func() { nowUnix = origNow }()
	nowUnix = func() int64 { return 1000 }

	tx := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 0)
	if _, err := p.AddTransaction(tx, st); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	nowUnix = func() int64 { return 1000 + 200 }
	removed := p.RemoveExpired()
	if removed != 1 || p.Len() != 0 {
		t.Errorf("RemoveExpired removed=%d len=%d, want 1/0", removed, p.Len())
	}
}

func TestRevalidateMarksInvalidAfterBalanceDrop(t *testing.T) {
	st := state.New()
	sender := newKeyedAccount(t, st, 1000)
	recipientKP, _ := crypto.GenerateKeyPair()
	p := New(DefaultConfig())

	tx := signedTx(t, sender, recipientKP.PublicKey, 10, 10, 0)
	hash, err := p.AddTransaction(tx, st)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	st.Set(sender.PublicKey, state.WithBalance(0))
	p.RevalidateTransactions(st)

	pt, _ := p.GetTransaction(hash)
	if pt.IsValid {
		t.Error("expected pooled tx to be marked invalid after balance drop")
	}

	selected := p.SelectTransactions(10, st)
	if len(selected) != 0 {
		t.Error("selection should skip invalid entries")
	}
}
