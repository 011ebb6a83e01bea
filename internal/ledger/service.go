package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RecordRequest carries everything needed to record one transaction. Amount
// and Timestamp are pointers so the engine can tell "absent" from a zero
// value: a missing amount is a validation error, a missing timestamp defaults
// to the recording time.
type RecordRequest struct {
	AccountID       string
	AccountType     AccountType
	Type            TransactionType
	Amount          *decimal.Decimal
	Currency        string
	Timestamp       *time.Time
	ReferenceID     string
	TransactionCode string
}

// Service is the ledger engine: it validates requests, enforces the currency
// lock, idempotent replay and the overdraft policy, and derives balances. All
// account state lives in the Storage; the service never caches it across
// calls.
type Service struct {
	storage Storage
	log     zerolog.Logger

	// locks serializes the whole record sequence per account so that the
	// currency check, idempotency insert, balance read and append cannot
	// interleave for the same account. Distinct accounts do not contend.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates a ledger engine on top of the given storage.
func NewService(storage Storage, log zerolog.Logger) *Service {
	return &Service{
		storage: storage,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockAccount returns the mutex for accountID, creating it on first use.
func (s *Service) lockAccount(accountID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[accountID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[accountID] = mu
	}
	return mu
}

// RecordTransaction validates req, applies the business rules and appends a
// freshly minted transaction. Resubmitting the same (accountID, referenceID)
// replays the original record instead of creating a duplicate.
func (s *Service) RecordTransaction(ctx context.Context, req RecordRequest) (Transaction, error) {
	if err := validate(req); err != nil {
		return Transaction{}, err
	}

	mu := s.lockAccount(req.AccountID)
	mu.Lock()
	defer mu.Unlock()

	currency := strings.ToUpper(req.Currency)

	// Currency lock: bind on first use, reject a mismatch thereafter.
	if bound, ok := s.storage.Currency(req.AccountID); !ok {
		s.storage.SetCurrency(req.AccountID, currency)
	} else if !strings.EqualFold(bound, req.Currency) {
		return Transaction{}, &ValidationError{
			Field:   "currency",
			Message: "currency mismatch for account " + req.AccountID + ": expected '" + bound + "', got '" + req.Currency + "'",
		}
	}

	// Idempotent replay: a duplicate reference returns the prior record
	// unchanged, regardless of the other fields in req.
	if !s.storage.CheckAndAddReference(req.AccountID, req.ReferenceID) {
		prior, ok := s.storage.FindByReference(req.AccountID, req.ReferenceID)
		if !ok {
			return Transaction{}, &InternalError{
				Message: "reference " + req.ReferenceID + " registered for account " + req.AccountID + " but transaction missing",
			}
		}
		s.log.Debug().
			Str("account_id", req.AccountID).
			Str("reference_id", req.ReferenceID).
			Str("transaction_id", prior.ID).
			Msg("Replayed idempotent transaction")
		return prior, nil
	}

	amount := *req.Amount
	if req.Type == TypeWithdrawal && !allowsOverdraft[req.AccountType] {
		balance := s.balance(req.AccountID, nil)
		if balance.LessThan(amount) {
			// The reference was inserted above; drop it so the failed
			// attempt leaves no side effects and an honest retry can succeed.
			s.storage.RemoveReference(req.AccountID, req.ReferenceID)
			return Transaction{}, &InsufficientFundsError{
				AccountID: req.AccountID,
				Balance:   balance,
				Amount:    amount,
			}
		}
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	tx := Transaction{
		ID:              uuid.New().String(),
		AccountID:       req.AccountID,
		AccountType:     req.AccountType,
		Type:            req.Type,
		Amount:          amount,
		Currency:        currency,
		Timestamp:       ts,
		ReferenceID:     req.ReferenceID,
		TransactionCode: req.TransactionCode,
	}
	s.storage.AppendTransaction(req.AccountID, tx)

	s.log.Info().
		Str("account_id", tx.AccountID).
		Str("transaction_id", tx.ID).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Str("currency", tx.Currency).
		Msg("Transaction recorded")

	return tx, nil
}

// validate checks request presence rules. No side effects occur on failure.
func validate(req RecordRequest) error {
	if strings.TrimSpace(req.AccountID) == "" {
		return NewValidationError("accountId", "required")
	}
	if req.AccountType == "" {
		return NewValidationError("accountType", "required")
	}
	if !req.AccountType.Valid() {
		return NewValidationError("accountType", "unknown account type '"+string(req.AccountType)+"'")
	}
	if req.Type == "" {
		return NewValidationError("type", "required")
	}
	if !req.Type.Valid() {
		return NewValidationError("type", "unknown transaction type '"+string(req.Type)+"'")
	}
	if req.Amount == nil {
		return NewValidationError("amount", "required")
	}
	if req.Amount.IsNegative() {
		return NewValidationError("amount", "must be >= 0")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return NewValidationError("currency", "required")
	}
	return nil
}

// CurrentBalance returns the account's balance over every recorded
// transaction, including future-dated ones. This matches the ledger's
// definition of "current": all rows, not all rows up to wall-clock now.
func (s *Service) CurrentBalance(accountID string) decimal.Decimal {
	return s.balance(accountID, nil)
}

// BalanceAt returns the signed sum of the account's transactions whose
// timestamp is at or before the given instant.
func (s *Service) BalanceAt(accountID string, at time.Time) decimal.Decimal {
	return s.balance(accountID, &at)
}

// balance sums signed amounts, optionally capped at a point in time. A nil
// cap includes everything.
func (s *Service) balance(accountID string, at *time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range s.storage.TransactionsForAccount(accountID) {
		if at != nil && tx.Timestamp.After(*at) {
			continue
		}
		total = total.Add(tx.SignedAmount())
	}
	return total
}

// TransactionHistory returns the account's transactions sorted ascending by
// timestamp. Entries with equal timestamps keep their append order.
func (s *Service) TransactionHistory(accountID string) []Transaction {
	txs := s.storage.TransactionsForAccount(accountID)
	sortByTimestamp(txs)
	return txs
}

// LedgerRows returns every transaction across all accounts sorted ascending
// by timestamp.
func (s *Service) LedgerRows() []Transaction {
	txs := s.storage.AllTransactions()
	sortByTimestamp(txs)
	return txs
}

func sortByTimestamp(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
}
