package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType determines which overdraft policy applies to an account.
type AccountType string

const (
	// AccountTypeSavings may never be overdrawn.
	AccountTypeSavings AccountType = "SAVINGS"
	// AccountTypeCreditCard carries no overdraft limit; its balance may go negative.
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
)

// TransactionType is the direction of a money movement.
type TransactionType string

const (
	// TypeDeposit moves money into the account (a payment on a credit card).
	TypeDeposit TransactionType = "DEPOSIT"
	// TypeWithdrawal moves money out of the account (a charge on a credit card).
	TypeWithdrawal TransactionType = "WITHDRAWAL"
)

// allowsOverdraft is the per-account-type overdraft policy. New account types
// are added by extending this table, not by branching in the engine.
var allowsOverdraft = map[AccountType]bool{
	AccountTypeSavings:    false,
	AccountTypeCreditCard: true,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	_, ok := allowsOverdraft[t]
	return ok
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// Transaction is one immutable ledger entry. Once appended it is never
// mutated or deleted; balances are always re-derived from the full sequence.
type Transaction struct {
	// ID is assigned at creation and never reused.
	ID string `json:"id"`

	// AccountID is the opaque key of the owning account.
	AccountID string `json:"account_id"`

	// AccountType the caller declared when recording this entry.
	AccountType AccountType `json:"account_type"`

	// Type is DEPOSIT or WITHDRAWAL.
	Type TransactionType `json:"type"`

	// Amount is the non-negative magnitude of the movement. The sign is
	// carried by Type, not by Amount.
	Amount decimal.Decimal `json:"amount"`

	// Currency is the ISO code, uppercased at creation.
	Currency string `json:"currency"`

	// Timestamp is when the transaction is effective. Callers may back-date
	// it, so append order and timestamp order can differ.
	Timestamp time.Time `json:"timestamp"`

	// ReferenceID is the client-supplied idempotency key, if any.
	ReferenceID string `json:"reference_id,omitempty"`

	// TransactionCode is a free-form business tag the ledger does not interpret.
	TransactionCode string `json:"transaction_code,omitempty"`
}

// SignedAmount returns the amount with the sign implied by the transaction
// type: positive for deposits, negative for withdrawals.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}
