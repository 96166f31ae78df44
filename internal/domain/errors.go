package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the ledger error taxonomy. Callers classify failures
// with errors.Is; structured detail types below carry context.
var (
	// ErrInvalidInput is returned for malformed requests (empty owner,
	// unknown entry type, non-positive hold amount).
	ErrInvalidInput = errors.New("ledger: invalid input")

	// ErrUnbalancedEntry is returned when the lines of an entry do not sum
	// to zero per asset. Never retried blindly; nothing is written.
	ErrUnbalancedEntry = errors.New("ledger: unbalanced entry")

	// ErrUnknownAsset is returned when a referenced asset does not exist.
	ErrUnknownAsset = errors.New("ledger: unknown asset")

	// ErrAssetDisabled is returned when a referenced asset exists but is
	// disabled for new activity.
	ErrAssetDisabled = errors.New("ledger: asset disabled")

	// ErrUnknownAccount is returned when a referenced account does not exist.
	ErrUnknownAccount = errors.New("ledger: unknown account")

	// ErrAccountFrozen is returned when a debit or hold targets a frozen
	// account.
	ErrAccountFrozen = errors.New("ledger: account frozen")

	// ErrDuplicateReference is returned when an entry with the same
	// (type, reference) already exists. Callers should treat it as
	// success-already-happened and look up the existing entry.
	ErrDuplicateReference = errors.New("ledger: duplicate reference")

	// ErrInsufficientAvailable is returned when an operation would push an
	// account's available balance below zero.
	ErrInsufficientAvailable = errors.New("ledger: insufficient available balance")

	// ErrInvalidHoldState is the parent of hold lifecycle violations.
	ErrInvalidHoldState = errors.New("ledger: invalid hold state")

	// ErrAlreadyReleased is returned when releasing a hold that is not
	// active anymore. Safe to ignore on retry.
	ErrAlreadyReleased = fmt.Errorf("%w: already released", ErrInvalidHoldState)

	// ErrAlreadyConsumed is returned when operating on a fully consumed
	// hold. Safe to ignore on retry.
	ErrAlreadyConsumed = fmt.Errorf("%w: already consumed", ErrInvalidHoldState)

	// ErrInvalidAmount is returned when an amount violates the asset's
	// precision or sign constraints.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrEntryNotFound is returned when an entry lookup misses.
	ErrEntryNotFound = errors.New("ledger: entry not found")

	// ErrHoldNotFound is returned when a hold lookup misses.
	ErrHoldNotFound = errors.New("ledger: hold not found")

	// ErrStorageConflict is returned for transient transaction conflicts
	// (serialization failures, deadlocks). Retried internally a bounded
	// number of times before surfacing.
	ErrStorageConflict = errors.New("ledger: storage conflict")
)

// InsufficientAvailableError carries the context needed for a caller to
// render an "insufficient funds" style message.
type InsufficientAvailableError struct {
	AccountID uint64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientAvailableError) Error() string {
	return fmt.Sprintf("ledger: insufficient available balance on account %d: requested %s, available %s",
		e.AccountID, e.Requested, e.Available)
}

// Unwrap makes the error match ErrInsufficientAvailable under errors.Is.
func (e *InsufficientAvailableError) Unwrap() error {
	return ErrInsufficientAvailable
}

// UnbalancedEntryError reports the per-asset residual that violated the
// zero-sum invariant.
type UnbalancedEntryError struct {
	AssetID  uint64
	Residual decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("ledger: unbalanced entry: asset %d lines sum to %s, want 0", e.AssetID, e.Residual)
}

func (e *UnbalancedEntryError) Unwrap() error {
	return ErrUnbalancedEntry
}

// IsRetryable reports whether the operation can be safely retried as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}

// IsNotFound reports whether the error is a missing-record lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownAsset) ||
		errors.Is(err, ErrUnknownAccount) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrHoldNotFound)
}

// IsSafeNoop reports whether the error indicates the requested effect has
// already happened (idempotency hit or hold already settled).
func IsSafeNoop(err error) bool {
	return errors.Is(err, ErrDuplicateReference) ||
		errors.Is(err, ErrAlreadyReleased) ||
		errors.Is(err, ErrAlreadyConsumed)
}
