package ledger

// Storage is the repository behind the ledger engine. It is a mechanical,
// always-available data structure: it performs no business validation and
// raises no business errors — those are the engine's job. Implementations
// must be safe for concurrent use, with operations on distinct accounts
// proceeding independently.
type Storage interface {
	// AppendTransaction adds tx to the end of the account's sequence. The
	// caller has already validated tx; the append always succeeds. The
	// account becomes known if it was not already.
	AppendTransaction(accountID string, tx Transaction)

	// CheckAndAddReference atomically tests whether referenceID is already
	// registered for the account and registers it if not. It returns true if
	// the key was newly inserted (the caller should record a transaction) and
	// false if it was already present (the caller should replay the prior
	// result). An empty referenceID always returns true with no side effects.
	CheckAndAddReference(accountID, referenceID string) bool

	// RemoveReference drops a key previously registered by
	// CheckAndAddReference. Used to roll back when a record attempt fails
	// after the key was inserted, so the failed attempt leaves no residue.
	RemoveReference(accountID, referenceID string)

	// FindByReference scans the account's sequence for a transaction with the
	// given reference ID.
	FindByReference(accountID, referenceID string) (Transaction, bool)

	// TransactionsForAccount returns a snapshot copy of the account's
	// sequence in append order. Append order is not timestamp order.
	TransactionsForAccount(accountID string) []Transaction

	// AllTransactions returns a flattened snapshot copy across all accounts,
	// unsorted.
	AllTransactions() []Transaction

	// Currency returns the currency bound to the account, if any.
	Currency(accountID string) (string, bool)

	// SetCurrency binds a currency to the account if none is bound yet.
	// Subsequent calls are no-ops, even with a different value; the engine
	// detects and rejects mismatches before relying on this.
	SetCurrency(accountID, currency string)

	// AccountExists reports whether the account has any recorded transaction.
	AccountExists(accountID string) bool
}
