package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorKind classifies ledger failures so callers can branch without string
// matching.
type ErrorKind string

const (
	KindInsufficientOwnership     ErrorKind = "insufficient_ownership"
	KindPaymentExceedsOwed        ErrorKind = "payment_exceeds_owed"
	KindInvalidConversionWeight   ErrorKind = "invalid_conversion_weight"
	KindInvalidConsolidationInput ErrorKind = "invalid_consolidation_input"
	KindCreditLimitExceeded       ErrorKind = "credit_limit_exceeded"
	KindConflict                  ErrorKind = "conflict"
	KindInvalidMovement           ErrorKind = "invalid_movement"
	KindNotFound                  ErrorKind = "not_found"
	KindInvalidInput              ErrorKind = "invalid_input"
)

// BalanceSnapshot is the balance known at the time of failure, so a rejected
// command can be explained to the operator.
type BalanceSnapshot struct {
	LotID      *uuid.UUID      `json:"lot_id,omitempty"`
	Weight     decimal.Decimal `json:"weight"`
	Quantity   decimal.Decimal `json:"quantity"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	// Available is the measure that could have been used (grams or units).
	Available decimal.Decimal `json:"available"`
	// Requested is what the command asked for, in the same measure.
	Requested decimal.Decimal `json:"requested"`
}

// LedgerError is the error type returned by every ledger operation.
type LedgerError struct {
	Kind    ErrorKind
	Message string
	Balance *BalanceSnapshot
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// Is matches any LedgerError of the same kind, so errors.Is(err,
// ErrInsufficientOwnership) works regardless of message.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInsufficientOwnership     = &LedgerError{Kind: KindInsufficientOwnership, Message: "insufficient ownership"}
	ErrPaymentExceedsOwed        = &LedgerError{Kind: KindPaymentExceedsOwed, Message: "payment exceeds amount owed"}
	ErrInvalidConversionWeight   = &LedgerError{Kind: KindInvalidConversionWeight, Message: "conversion weight must be positive"}
	ErrInvalidConsolidationInput = &LedgerError{Kind: KindInvalidConsolidationInput, Message: "invalid consolidation input"}
	ErrCreditLimitExceeded       = &LedgerError{Kind: KindCreditLimitExceeded, Message: "supplier credit limit exceeded"}
	ErrConflict                  = &LedgerError{Kind: KindConflict, Message: "concurrent modification"}
	ErrInvalidMovement           = &LedgerError{Kind: KindInvalidMovement, Message: "invalid movement"}
	ErrNotFound                  = &LedgerError{Kind: KindNotFound, Message: "not found"}
	ErrInvalidInput              = &LedgerError{Kind: KindInvalidInput, Message: "invalid input"}
)

func newLedgerError(kind ErrorKind, balance *BalanceSnapshot, format string, args ...any) *LedgerError {
	return &LedgerError{Kind: kind, Message: fmt.Sprintf(format, args...), Balance: balance}
}

func invalidInput(format string, args ...any) *LedgerError {
	return newLedgerError(KindInvalidInput, nil, format, args...)
}

func notFound(format string, args ...any) *LedgerError {
	return newLedgerError(KindNotFound, nil, format, args...)
}

// KindOf returns the ErrorKind of err, or "" for non-ledger errors.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsRetryable reports whether re-submitting the same command may succeed.
// Only lock/version conflicts qualify.
func IsRetryable(err error) bool { return KindOf(err) == KindConflict }
