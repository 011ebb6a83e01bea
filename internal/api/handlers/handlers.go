package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/ledger-service/internal/api/middleware"
	"github.com/dvloznov/ledger-service/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles ledger-related endpoints.
type LedgerHandler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(service *ledger.Service, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		log:     log,
	}
}

// transactionRequest is the POST body for recording a transaction.
// Timestamp is an optional RFC 3339 offset date-time; blank means "now".
type transactionRequest struct {
	AccountType     string           `json:"accountType"`
	Type            string           `json:"type"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency"`
	ReferenceID     string           `json:"referenceId"`
	Timestamp       string           `json:"timestamp"`
	TransactionCode string           `json:"transactionCode"`
}

// RecordTransaction handles POST /accounts/{accountId}/transactions
func (h *LedgerHandler) RecordTransaction(w http.ResponseWriter, r *http.Request, accountID string) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var ts *time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "timestamp must be an RFC 3339 date-time")
			return
		}
		ts = &parsed
	}

	tx, err := h.service.RecordTransaction(r.Context(), ledger.RecordRequest{
		AccountID:       accountID,
		AccountType:     ledger.AccountType(req.AccountType),
		Type:            ledger.TransactionType(req.Type),
		Amount:          req.Amount,
		Currency:        req.Currency,
		Timestamp:       ts,
		ReferenceID:     req.ReferenceID,
		TransactionCode: req.TransactionCode,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// GetTransactionHistory handles GET /accounts/{accountId}/transactions
func (h *LedgerHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request, accountID string) {
	txs := h.service.TransactionHistory(accountID)
	txs, err := paginate(txs, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// GetCurrentBalance handles GET /accounts/{accountId}/balance
func (h *LedgerHandler) GetCurrentBalance(w http.ResponseWriter, r *http.Request, accountID string) {
	balance := h.service.CurrentBalance(accountID)
	middleware.WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// GetBalanceAt handles GET /accounts/{accountId}/balanceAt?at=<RFC3339>
func (h *LedgerHandler) GetBalanceAt(w http.ResponseWriter, r *http.Request, accountID string) {
	atParam := r.URL.Query().Get("at")
	if atParam == "" {
		middleware.WriteError(w, http.StatusBadRequest, "at query parameter is required")
		return
	}

	at, err := time.Parse(time.RFC3339, atParam)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "at must be an RFC 3339 date-time")
		return
	}

	balance := h.service.BalanceAt(accountID, at)
	middleware.WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// GetLedger handles GET /ledger
func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	rows := h.service.LedgerRows()
	rows, err := paginate(rows, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

// writeServiceError maps engine errors to HTTP status codes: validation and
// insufficient-funds failures are the caller's fault, everything else is ours.
func (h *LedgerHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *ledger.ValidationError
	var fundsErr *ledger.InsufficientFundsError

	switch {
	case errors.As(err, &validationErr):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fundsErr):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Failed to record transaction")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// paginate applies optional limit/offset query parameters to an already
// sorted result. Absent parameters leave the result untouched.
func paginate(txs []ledger.Transaction, r *http.Request) ([]ledger.Transaction, error) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		return nil, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		if offset >= len(txs) {
			return []ledger.Transaction{}, nil
		}
		txs = txs[offset:]
	}
	if limit > 0 && limit < len(txs) {
		txs = txs[:limit]
	}
	return txs, nil
}

// queryInt parses a non-negative integer query parameter, 0 when absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}
