package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed input or a currency that conflicts with
// the account's bound currency. Nothing has been recorded when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientFundsError reports a savings withdrawal that would drive the
// balance negative. The attempt leaves no trace in the ledger.
type InsufficientFundsError struct {
	AccountID string
	Balance   decimal.Decimal
	Amount    decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for withdrawal of %s from account %s (balance %s)",
		e.Amount, e.AccountID, e.Balance)
}

// InternalError reports a storage consistency failure: an idempotency key was
// registered but the transaction it belongs to cannot be located. It signals
// a bug, not a caller mistake.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return e.Message
}
