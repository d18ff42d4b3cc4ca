package txn

import "errors"

// Structural validation errors. These are generic "Validation" failures in
// the broader error taxonomy (internal/mempool/poolerr); they are kept as
// sentinel errors here so callers can still match the specific rule with
// errors.Is.
var (
	ErrInvalidVersion    = errors.New("txn: unsupported transaction version")
	ErrZeroAmount        = errors.New("txn: amount must be greater than zero")
	ErrZeroFee           = errors.New("txn: fee must be greater than zero")
	ErrSelfTransfer      = errors.New("txn: sender and recipient must differ")
	ErrDataTooLarge      = errors.New("txn: data exceeds maximum size")
	ErrAmountFeeOverflow = errors.New("txn: amount and fee overflow")
	ErrInvalidSignature  = errors.New("txn: signature verification failed")
)
