// Package poolerr defines the rich error taxonomy shared by the mempool
// and the ledger store, generalizing the teacher's single
// sharechain.ValidationError shape (a typed struct with a Reason field)
// into the kind-tagged hierarchy spec.md §7 requires. Every error carries
// a Kind so callers can categorize without matching on message strings.
package poolerr

import (
	"errors"
	"fmt"

	"blocana/internal/crypto"
)

// Kind enumerates the categories of error the core can produce.
type Kind int

const (
	KindValidation Kind = iota
	KindAlreadyExists
	KindInvalidSignature
	KindInvalidNonce
	KindInsufficientBalance
	KindFeeTooLow
	KindReplacementFeeTooLow
	KindDataTooLarge
	KindPoolFull
	KindMemoryLimitReached
	KindExpired
	KindRateLimited
	KindDatabase
	KindSerialization
	KindIO
	KindNotFound
	KindCrypto
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindInvalidNonce:
		return "InvalidNonce"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindFeeTooLow:
		return "FeeTooLow"
	case KindReplacementFeeTooLow:
		return "ReplacementFeeTooLow"
	case KindDataTooLarge:
		return "DataTooLarge"
	case KindPoolFull:
		return "PoolFull"
	case KindMemoryLimitReached:
		return "MemoryLimitReached"
	case KindExpired:
		return "Expired"
	case KindRateLimited:
		return "RateLimited"
	case KindDatabase:
		return "Database"
	case KindSerialization:
		return "Serialization"
	case KindIO:
		return "IO"
	case KindNotFound:
		return "NotFound"
	case KindCrypto:
		return "Crypto"
	default:
		return "Other"
	}
}

// Error is the concrete error type returned by mempool and storage
// operations. Context fields are populated according to Kind; fields that
// don't apply to a given Kind are left at their zero value.
type Error struct {
	Kind Kind
	Msg  string

	TxHash       crypto.Hash
	Sender       crypto.Address
	Expected     uint64
	Actual       uint64
	Balance      uint64
	Required     uint64
	FeePerByte   uint64
	MinRequired  uint64
	Size         int
	MaxSize      int
	CurrentSize  int
	CurrentBytes int
	MaxBytes     int
	CreationTime int64
	ExpiryTime   int64

	wrapped error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

// Unwrap lets errors.Is/As reach a wrapped cause, if any.
func (e *Error) Unwrap() error { return e.wrapped }

// New builds a plain Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind that wraps an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), wrapped: cause}
}

// AlreadyExists reports a mempool duplicate or a disallowed replacement.
func AlreadyExists(txHash crypto.Hash) *Error {
	return &Error{Kind: KindAlreadyExists, TxHash: txHash,
		Msg: fmt.Sprintf("transaction %s already exists in pool", txHash)}
}

// InvalidSignature reports a transaction whose signature failed strict
// Ed25519 verification.
func InvalidSignature() *Error {
	return &Error{Kind: KindInvalidSignature, Msg: "invalid transaction signature"}
}

// InvalidNonce reports a nonce mismatch against the account's expected
// next nonce.
func InvalidNonce(sender crypto.Address, expected, actual uint64) *Error {
	return &Error{Kind: KindInvalidNonce, Sender: sender, Expected: expected, Actual: actual,
		Msg: fmt.Sprintf("invalid nonce for %s: expected %d, got %d", sender, expected, actual)}
}

// InsufficientBalance reports a sender whose balance cannot cover the
// required total.
func InsufficientBalance(sender crypto.Address, balance, required uint64) *Error {
	return &Error{Kind: KindInsufficientBalance, Sender: sender, Balance: balance, Required: required,
		Msg: fmt.Sprintf("insufficient balance for %s: has %d, needs %d", sender, balance, required)}
}

// FeeTooLow reports a fee-per-byte below the pool's floor.
func FeeTooLow(feePerByte, minRequired uint64) *Error {
	return &Error{Kind: KindFeeTooLow, FeePerByte: feePerByte, MinRequired: minRequired,
		Msg: fmt.Sprintf("fee too low: %d per byte, minimum is %d", feePerByte, minRequired)}
}

// ReplacementFeeTooLow reports a replacement transaction that did not
// clear the required fee bump.
func ReplacementFeeTooLow(actual, required uint64) *Error {
	return &Error{Kind: KindReplacementFeeTooLow, Actual: actual, Required: required, Msg: fmt.Sprintf(
		"replacement fee too low: got %d, need at least %d", actual, required)}
}

// DataTooLarge reports an oversized transaction data field.
func DataTooLarge(size, maxSize int) *Error {
	return &Error{Kind: KindDataTooLarge, Size: size, MaxSize: maxSize,
		Msg: fmt.Sprintf("data too large: %d bytes, maximum is %d", size, maxSize)}
}

// PoolFull reports that the pool cannot admit a transaction without
// evicting a worse one.
func PoolFull(currentSize, maxSize int) *Error {
	return &Error{Kind: KindPoolFull, CurrentSize: currentSize, MaxSize: maxSize,
		Msg: fmt.Sprintf("pool is full: %d/%d transactions", currentSize, maxSize)}
}

// MemoryLimitReached reports that admission would exceed the hard memory
// cap even after optimization.
func MemoryLimitReached(currentBytes, maxBytes int) *Error {
	return &Error{Kind: KindMemoryLimitReached, CurrentBytes: currentBytes, MaxBytes: maxBytes,
		Msg: fmt.Sprintf("memory limit reached: %d/%d bytes", currentBytes, maxBytes)}
}

// Expired reports a transaction that aged out of the pool.
func Expired(txHash crypto.Hash, creationTime, expiryTime int64) *Error {
	return &Error{Kind: KindExpired, TxHash: txHash, CreationTime: creationTime, ExpiryTime: expiryTime,
		Msg: fmt.Sprintf("transaction %s is expired: created at %d, expired at %d", txHash, creationTime, expiryTime)}
}

// RateLimited reports a sender throttled by the per-sender submission
// rate limiter (disabled unless a caller enables it).
func RateLimited(sender crypto.Address) *Error {
	return &Error{Kind: KindRateLimited, Sender: sender,
		Msg: fmt.Sprintf("rate limited: too many transactions from sender %s", sender)}
}

// NotFound reports a missing database record.
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// --- categorization helpers ---

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsBalanceError reports whether err is an InsufficientBalance error.
func IsBalanceError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInsufficientBalance
}

// IsNonceError reports whether err is an InvalidNonce error.
func IsNonceError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidNonce
}

// IsFeeError reports whether err is a FeeTooLow or ReplacementFeeTooLow
// error.
func IsFeeError(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == KindFeeTooLow || k == KindReplacementFeeTooLow)
}

// IsResourceError reports whether err is a PoolFull or
// MemoryLimitReached error.
func IsResourceError(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == KindPoolFull || k == KindMemoryLimitReached)
}

// IsDuplicate reports whether err is an AlreadyExists error.
func IsDuplicate(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAlreadyExists
}

// IsTemporary reports whether a retry might succeed later: resource
// pressure and rate limiting are transient, everything else is not.
func IsTemporary(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == KindPoolFull || k == KindMemoryLimitReached || k == KindRateLimited)
}
