package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/ledger-service/internal/ledger"
	"github.com/dvloznov/ledger-service/internal/ledger/inmemory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestHandler() *LedgerHandler {
	service := ledger.NewService(inmemory.NewStore(), zerolog.Nop())
	return NewLedgerHandler(service, zerolog.Nop())
}

func postTransaction(t *testing.T, h *LedgerHandler, accountID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/accounts/"+accountID+"/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RecordTransaction(rec, req, accountID)
	return rec
}

func decodeTransaction(t *testing.T, rec *httptest.ResponseRecorder) ledger.Transaction {
	t.Helper()
	var tx ledger.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	return tx
}

func decodeBalance(t *testing.T, rec *httptest.ResponseRecorder) decimal.Decimal {
	t.Helper()
	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	return resp.Balance
}

func TestRecordTransaction(t *testing.T) {
	h := newTestHandler()

	rec := postTransaction(t, h, "A1", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":100.00,"currency":"usd"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	tx := decodeTransaction(t, rec)
	if tx.ID == "" {
		t.Error("expected a transaction id")
	}
	if tx.Currency != "USD" {
		t.Errorf("currency = %q, want USD", tx.Currency)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("amount = %s, want 100.00", tx.Amount)
	}
}

func TestRecordTransaction_BadRequests(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"bad timestamp", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":1,"currency":"USD","timestamp":"yesterday"}`},
		{"missing amount", `{"accountType":"SAVINGS","type":"DEPOSIT","currency":"USD"}`},
		{"negative amount", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":-5,"currency":"USD"}`},
		{"missing currency", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":1}`},
		{"unknown type", `{"accountType":"SAVINGS","type":"TRANSFER","amount":1,"currency":"USD"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postTransaction(t, h, "A1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		})
	}
}

func TestRecordTransaction_InsufficientFunds(t *testing.T) {
	h := newTestHandler()

	rec := postTransaction(t, h, "A1", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":100,"currency":"USD"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = postTransaction(t, h, "A1", `{"accountType":"SAVINGS","type":"WITHDRAWAL","amount":150,"currency":"USD"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("overdraft status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// Balance is unchanged after the failed attempt.
	req := httptest.NewRequest(http.MethodGet, "/accounts/A1/balance", nil)
	balRec := httptest.NewRecorder()
	h.GetCurrentBalance(balRec, req, "A1")
	if got := decodeBalance(t, balRec); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestRecordTransaction_IdempotentReplay(t *testing.T) {
	h := newTestHandler()

	body := `{"accountType":"SAVINGS","type":"DEPOSIT","amount":200,"currency":"USD","referenceId":"r1"}`
	first := decodeTransaction(t, postTransaction(t, h, "A1", body))
	second := decodeTransaction(t, postTransaction(t, h, "A1", body))

	if first.ID != second.ID {
		t.Errorf("replay returned a different transaction: %s vs %s", first.ID, second.ID)
	}

	req := httptest.NewRequest(http.MethodGet, "/accounts/A1/transactions", nil)
	rec := httptest.NewRecorder()
	h.GetTransactionHistory(rec, req, "A1")

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("history count = %d, want 1", resp.Count)
	}
}

func TestRecordTransaction_SuppliedTimestamp(t *testing.T) {
	h := newTestHandler()

	rec := postTransaction(t, h, "A1",
		`{"accountType":"SAVINGS","type":"DEPOSIT","amount":10,"currency":"USD","timestamp":"2024-03-01T12:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	tx := decodeTransaction(t, rec)
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !tx.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", tx.Timestamp, want)
	}
}

func TestGetBalanceAt(t *testing.T) {
	h := newTestHandler()

	postTransaction(t, h, "A1", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":100,"currency":"USD","timestamp":"2024-01-01T00:00:00Z"}`)
	postTransaction(t, h, "A1", `{"accountType":"SAVINGS","type":"DEPOSIT","amount":50,"currency":"USD","timestamp":"2024-06-01T00:00:00Z"}`)

	req := httptest.NewRequest(http.MethodGet, "/accounts/A1/balanceAt?at=2024-03-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	h.GetBalanceAt(rec, req, "A1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBalance(t, rec); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", got)
	}
}

func TestGetBalanceAt_BadParam(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name   string
		target string
	}{
		{"missing at", "/accounts/A1/balanceAt"},
		{"unparseable at", "/accounts/A1/balanceAt?at=notatime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.GetBalanceAt(rec, req, "A1")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGetLedger_Pagination(t *testing.T) {
	h := newTestHandler()

	for _, day := range []string{"01", "02", "03", "04"} {
		postTransaction(t, h, "A1",
			`{"accountType":"SAVINGS","type":"DEPOSIT","amount":10,"currency":"USD","timestamp":"2024-01-`+day+`T00:00:00Z"}`)
	}

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantCount int
	}{
		{"no pagination", "/ledger", http.StatusOK, 4},
		{"limit", "/ledger?limit=2", http.StatusOK, 2},
		{"offset", "/ledger?offset=3", http.StatusOK, 1},
		{"limit and offset", "/ledger?limit=2&offset=1", http.StatusOK, 2},
		{"offset past end", "/ledger?offset=10", http.StatusOK, 0},
		{"bad limit", "/ledger?limit=-1", http.StatusBadRequest, 0},
		{"bad offset", "/ledger?offset=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.GetLedger(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp struct {
				Transactions []ledger.Transaction `json:"transactions"`
				Count        int                  `json:"count"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode ledger: %v", err)
			}
			if resp.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", resp.Count, tt.wantCount)
			}
		})
	}
}

func TestGetLedger_SortedByTimestamp(t *testing.T) {
	h := newTestHandler()

	// Submit out of order; the ledger view sorts by timestamp.
	for _, day := range []string{"03", "01", "02"} {
		postTransaction(t, h, "A"+day,
			`{"accountType":"SAVINGS","type":"DEPOSIT","amount":10,"currency":"USD","timestamp":"2024-01-`+day+`T00:00:00Z"}`)
	}

	req := httptest.NewRequest(http.MethodGet, "/ledger", nil)
	rec := httptest.NewRecorder()
	h.GetLedger(rec, req)

	var resp struct {
		Transactions []ledger.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(resp.Transactions) != 3 {
		t.Fatalf("len = %d, want 3", len(resp.Transactions))
	}
	for i, want := range []string{"A01", "A02", "A03"} {
		if resp.Transactions[i].AccountID != want {
			t.Errorf("transactions[%d].AccountID = %q, want %q", i, resp.Transactions[i].AccountID, want)
		}
	}
}
