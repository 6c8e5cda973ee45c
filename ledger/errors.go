/*
errors.go - Centralized error types for the ledger core

ERROR CATEGORIES:
  1. Validation errors - caller mistakes, rejected before append
  2. Integrity errors - rejected at append by the store (duplicate time,
     duplicate unique fields, dangling references)
  3. Derivation defects - impossible states that indicate a bug, not a
     caller mistake; never recovered

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, ledger.ErrValidation) { ... 400 ... }
    if ledger.IsNotFound(err) { ... 404 ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every caller-input error. Structured
	// ValidationError values unwrap to it.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateTime is returned when an append would give two
	// transactions the same timestamp. Time uniqueness is the backbone of
	// the log's total order and is enforced by the store.
	ErrDuplicateTime = errors.New("transaction time already taken")

	// ErrUserNotFound is returned for references to unpersisted users.
	ErrUserNotFound = errors.New("user not found")

	// ErrProductNotFound is returned for references to unpersisted products.
	ErrProductNotFound = errors.New("product not found")

	// ErrTransactionNotFound is returned when a reference-transaction bound
	// or a joint parent id points at no persisted transaction.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateUser is returned when a user name is already taken.
	ErrDuplicateUser = errors.New("user name already taken")

	// ErrDuplicateProduct is returned when a product name or barcode is
	// already taken.
	ErrDuplicateProduct = errors.New("product name or barcode already taken")

	// ErrDerivationDefect flags an impossible state during replay, e.g. a
	// JOINT_BUY_PRODUCT whose parent is missing. This is a bug in the log
	// or the store, never a caller mistake, and is not recovered.
	ErrDerivationDefect = errors.New("derivation defect")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError carries enough detail for the caller to correct the input.
type ValidationError struct {
	Code    string // e.g. "non_positive_count", "self_transfer"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalidf(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsClientError reports whether the error is the caller's fault and should
// be surfaced as such, rather than as an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateTime) ||
		errors.Is(err, ErrDuplicateUser) ||
		errors.Is(err, ErrDuplicateProduct) ||
		IsNotFound(err)
}
