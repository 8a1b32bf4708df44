package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tally/internal/ledger"
	"tally/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	clock := func() time.Time {
		return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	engine := ledger.New(memory.New(), ledger.WithClock(clock))
	srv := NewServer(":0", engine, "")
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 19.99, "type": "expense", "category": "groceries", "note": "weekly shop", "date": "2025-03-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body)
	}
	// Amounts serialize as plain two-decimal numbers, never strings.
	if !strings.Contains(rr.Body.String(), `"amount":19.99`) {
		t.Fatalf("amount not a raw number: %s", rr.Body)
	}

	// Amount as a decimal string is accepted too.
	rr = doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": "2500.00", "type": "income", "category": "salary", "date": "2025-03-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for string amount, got %d: %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var txs []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0]["date"] != "2025-03-10" {
		t.Fatalf("expected newest first, got %v", txs[0]["date"])
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions?type=income", "")
	txs = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode filtered list: %v", err)
	}
	if len(txs) != 1 || txs[0]["category"] != "salary" {
		t.Fatalf("type filter not applied: %v", txs)
	}
}

func TestCreateTransactionRejections(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"amount":`, http.StatusBadRequest},
		{"zero amount", `{"amount": 0, "type": "expense", "category": "x", "date": "2025-03-10"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"amount": -5, "type": "expense", "category": "x", "date": "2025-03-10"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"amount": 5, "type": "transfer", "category": "x", "date": "2025-03-10"}`, http.StatusUnprocessableEntity},
		{"blank category", `{"amount": 5, "type": "expense", "category": "  ", "date": "2025-03-10"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"amount": 5, "type": "expense", "category": "x", "date": "10/03/2025"}`, http.StatusUnprocessableEntity},
		{"bad cadence", `{"amount": 5, "type": "expense", "category": "x", "date": "2025-03-10", "is_recurring": true, "recurrence": "daily"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/transactions", tc.body)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body)
			}
		})
	}

	// None of the rejected requests may have written anything.
	rr := doJSON(t, srv, http.MethodGet, "/transactions", "")
	var txs []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("rejected requests left %d transactions", len(txs))
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 5, "type": "expense", "category": "x", "date": "2025-03-10"}`)
	var created map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	id := int64(created["id"].(float64))

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/transactions/%d", id), "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/transactions/%d", id), "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, "/transactions/abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rr.Code)
	}
}

func TestRecurringExpansionOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// Clock is pinned to 2025-03-15; a monthly series from Jan 31 expands
	// to Feb 28 on creation and everything shows up in the first list.
	rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 1200, "type": "expense", "category": "rent", "date": "2025-01-31", "is_recurring": true, "recurrence": "monthly"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions", "")
	var txs []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected origin + february occurrence, got %d", len(txs))
	}
	if txs[0]["date"] != "2025-02-28" || txs[0]["recurrence_source_id"] == nil {
		t.Fatalf("materialized occurrence wrong: %v", txs[0])
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 2600, "type": "income", "category": "salary", "date": "2025-03-01"}`)
	doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 1245.50, "type": "expense", "category": "rent", "date": "2025-03-01"}`)

	rr := doJSON(t, srv, http.MethodGet, "/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`"balance":1354.50`, `"total_income":2600.00`, `"total_expense":1245.50`} {
		if !strings.Contains(body, want) {
			t.Fatalf("summary missing %s: %s", want, body)
		}
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 80, "type": "expense", "category": "groceries", "date": "2025-03-10"}`)

	rr := doJSON(t, srv, http.MethodPost, "/budgets", `{"category": "groceries", "amount": 400}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Body.String(), `"spent":80.00`) {
		t.Fatalf("budget response missing derived spent: %s", rr.Body)
	}
	var created map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created budget: %v", err)
	}
	id := int64(created["id"].(float64))

	rr = doJSON(t, srv, http.MethodGet, "/budgets", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"category":"groceries"`) {
		t.Fatalf("list budgets: %d %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/budgets/%d", id), `{"category": "food", "amount": 350.50}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"amount":350.50`) {
		t.Fatalf("update budget: %d %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodPut, "/budgets/999", `{"category": "x", "amount": 10}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown budget, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/budgets", `{"category": "food", "amount": 0}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero limit, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/budgets/%d", id), "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete budget: %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/budgets/%d", id), "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted budget, got %d", rr.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 100, "type": "expense", "category": "transport", "date": "2025-03-05"}`)

	rr := doJSON(t, srv, http.MethodGet, "/analytics/monthly", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("monthly status=%d", rr.Code)
	}
	var points []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode monthly: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("default window must be 6 months, got %d", len(points))
	}

	rr = doJSON(t, srv, http.MethodGet, "/analytics/monthly?months=3", "")
	points = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode monthly: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 months, got %d", len(points))
	}

	for _, q := range []string{"months=0", "months=25", "months=abc"} {
		rr = doJSON(t, srv, http.MethodGet, "/analytics/monthly?"+q, "")
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", q, rr.Code)
		}
	}

	rr = doJSON(t, srv, http.MethodGet, "/analytics/by-category", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"transport"`) {
		t.Fatalf("by-category: %d %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/analytics/by-category?month=2025-02", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty month must return []: %d %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/analytics/by-category?month=February", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad month, got %d", rr.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/transactions",
		`{"amount": 19.99, "type": "expense", "category": "groceries", "date": "2025-03-10"}`)

	rr := doJSON(t, srv, http.MethodGet, "/transactions/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type: %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition: %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "date,type,category,amount,note") {
		t.Fatalf("csv header missing: %s", rr.Body)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/transactions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin: %q", got)
	}

	// Unknown origins get no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/summary", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}
