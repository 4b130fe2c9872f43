package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("concurrent update conflict, retry later")
	ErrProvider            = errors.New("payout provider failure")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrAlreadySubscribed   = errors.New("user already has an active subscription to this creator")
	ErrDuplicateKey        = errors.New("idempotency key already used")
	ErrHoldNotPending      = errors.New("hold is already settled or released")
	ErrLockNotAcquired     = errors.New("lock is held by another worker")
	ErrRateLimited         = errors.New("too many requests")

	// Storage errors
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// InsufficientBalanceError carries the numbers a client needs to explain why
// a debit was refused. Held coins are reported separately because they are
// part of Balance but not spendable.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
	Balance   int64
	Held      int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d (balance %d, held %d)",
		e.Required, e.Available, e.Balance, e.Held)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// ValidationError is returned for malformed or contradictory input.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ProviderError wraps a failure of the external payout provider.
// Transient is set for timeouts and connection failures, where the outcome
// on the provider side is unknown.
type ProviderError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payout provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// IsTransientProviderError reports whether err is a provider failure with an
// unknown outcome.
func IsTransientProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
