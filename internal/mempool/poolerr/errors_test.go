package poolerr

import (
	"errors"
	"testing"

	"blocana/internal/crypto"
)

func TestKindString(t *testing.T) {
	if KindInvalidNonce.String() != "InvalidNonce" {
		t.Errorf("KindInvalidNonce.String() = %q", KindInvalidNonce.String())
	}
	if Kind(999).String() != "Other" {
		t.Errorf("unknown kind should stringify to Other")
	}
}

func TestConstructorsSetKindAndFields(t *testing.T) {
	var sender crypto.Address
	sender[0] = 0x42

	err := InvalidNonce(sender, 3, 5)
	if err.Kind != KindInvalidNonce {
		t.Errorf("Kind = %v, want InvalidNonce", err.Kind)
	}
	if err.Expected != 3 || err.Actual != 5 {
		t.Errorf("fields = %+v", err)
	}

	balErr := InsufficientBalance(sender, 10, 100)
	if balErr.Balance != 10 || balErr.Required != 100 {
		t.Errorf("fields = %+v", balErr)
	}
}

func TestErrorImplementsStandardError(t *testing.T) {
	var err error = New(KindValidation, "bad thing: %d", 7)
	if err.Error() == "" {
		t.Fatal("Error() returned empty string")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(KindDatabase, cause, "write failed")
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is did not find wrapped cause")
	}
}

func TestCategorizationHelpers(t *testing.T) {
	var sender crypto.Address

	if !IsNonceError(InvalidNonce(sender, 0, 1)) {
		t.Error("IsNonceError should match InvalidNonce")
	}
	if !IsBalanceError(InsufficientBalance(sender, 0, 1)) {
		t.Error("IsBalanceError should match InsufficientBalance")
	}
	if !IsFeeError(FeeTooLow(1, 2)) || !IsFeeError(ReplacementFeeTooLow(1, 2)) {
		t.Error("IsFeeError should match both fee kinds")
	}
	if !IsResourceError(PoolFull(1, 2)) || !IsResourceError(MemoryLimitReached(1, 2)) {
		t.Error("IsResourceError should match both resource kinds")
	}
	if !IsDuplicate(AlreadyExists(crypto.Hash{})) {
		t.Error("IsDuplicate should match AlreadyExists")
	}
	if !IsTemporary(PoolFull(1, 2)) || !IsTemporary(RateLimited(sender)) {
		t.Error("IsTemporary should match PoolFull and RateLimited")
	}
	if IsTemporary(InvalidSignature()) {
		t.Error("IsTemporary should not match InvalidSignature")
	}

	plainErr := errors.New("not a poolerr.Error")
	if IsNonceError(plainErr) || IsBalanceError(plainErr) {
		t.Error("categorization helpers should return false for non-poolerr errors")
	}
}
