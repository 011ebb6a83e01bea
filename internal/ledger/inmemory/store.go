// Package inmemory provides the in-memory implementation of ledger.Storage.
package inmemory

import (
	"sync"

	"github.com/dvloznov/ledger-service/internal/ledger"
)

// account holds everything the store tracks per account. Each account has its
// own mutex so activity on one account never blocks another; the outer store
// mutex only guards the account map itself.
type account struct {
	mu           sync.Mutex
	transactions []ledger.Transaction
	references   map[string]struct{}
	currency     string
}

// Store is an in-memory implementation of ledger.Storage.
// It is safe for concurrent use. Data is lost on service restart - the ledger
// is defined over the process lifetime only.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
	}
}

// acct returns the state for accountID, creating it on first use.
func (s *Store) acct(accountID string) *account {
	s.mu.RLock()
	a, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if ok {
		return a
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok = s.accounts[accountID]; ok {
		return a
	}
	a = &account{references: make(map[string]struct{})}
	s.accounts[accountID] = a
	return a
}

// AppendTransaction implements the ledger.Storage interface.
// It adds tx to the end of the account's sequence; the append always succeeds.
func (s *Store) AppendTransaction(accountID string, tx ledger.Transaction) {
	a := s.acct(accountID)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transactions = append(a.transactions, tx)
}

// CheckAndAddReference implements the ledger.Storage interface.
// The test and the insert happen under the account's mutex, so of two
// concurrent calls with the same key exactly one sees true.
func (s *Store) CheckAndAddReference(accountID, referenceID string) bool {
	if referenceID == "" {
		return true
	}

	a := s.acct(accountID)
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.references[referenceID]; exists {
		return false
	}
	a.references[referenceID] = struct{}{}
	return true
}

// RemoveReference implements the ledger.Storage interface.
func (s *Store) RemoveReference(accountID, referenceID string) {
	if referenceID == "" {
		return
	}

	a := s.acct(accountID)
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.references, referenceID)
}

// FindByReference implements the ledger.Storage interface.
// It scans the account's sequence in append order and returns the first match.
func (s *Store) FindByReference(accountID, referenceID string) (ledger.Transaction, bool) {
	s.mu.RLock()
	a, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return ledger.Transaction{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tx := range a.transactions {
		if tx.ReferenceID == referenceID {
			return tx, true
		}
	}
	return ledger.Transaction{}, false
}

// TransactionsForAccount implements the ledger.Storage interface.
// It returns a snapshot copy in append order, which may differ from
// timestamp order when callers back-date transactions.
func (s *Store) TransactionsForAccount(accountID string) []ledger.Transaction {
	s.mu.RLock()
	a, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ledger.Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// AllTransactions implements the ledger.Storage interface.
// It returns a flattened snapshot copy across all accounts, unsorted.
func (s *Store) AllTransactions() []ledger.Transaction {
	s.mu.RLock()
	accounts := make([]*account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	s.mu.RUnlock()

	var out []ledger.Transaction
	for _, a := range accounts {
		a.mu.Lock()
		out = append(out, a.transactions...)
		a.mu.Unlock()
	}
	return out
}

// Currency implements the ledger.Storage interface.
func (s *Store) Currency(accountID string) (string, bool) {
	s.mu.RLock()
	a, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currency == "" {
		return "", false
	}
	return a.currency, true
}

// SetCurrency implements the ledger.Storage interface.
// The first writer wins; later calls are no-ops even with a different value.
func (s *Store) SetCurrency(accountID, currency string) {
	a := s.acct(accountID)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currency == "" {
		a.currency = currency
	}
}

// AccountExists implements the ledger.Storage interface.
func (s *Store) AccountExists(accountID string) bool {
	s.mu.RLock()
	a, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.transactions) > 0
}

// Ensure Store implements ledger.Storage interface.
var _ ledger.Storage = (*Store)(nil)
