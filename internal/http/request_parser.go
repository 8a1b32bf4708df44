package http

// Parsing of query filters and JSON request bodies into validated engine
// inputs. Amounts arrive as JSON numbers or decimal strings and are
// converted to cents before any store is touched.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"tally/internal/core"
	"tally/internal/ledger"
)

type createTransactionRequest struct {
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Note        string      `json:"note"`
	Date        string      `json:"date"`
	IsRecurring bool        `json:"is_recurring"`
	Recurrence  string      `json:"recurrence"`
}

type budgetRequest struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

// parseTransactionFilter extracts the optional list/export filters from the
// query string. All provided filters combine with logical AND.
func parseTransactionFilter(query url.Values) (core.TransactionFilter, error) {
	filter := core.TransactionFilter{
		Search:   strings.TrimSpace(query.Get("search")),
		Category: strings.TrimSpace(query.Get("category")),
	}

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t := core.TransactionType(v)
		if !t.Valid() {
			return core.TransactionFilter{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
		}
		filter.Type = t
	}
	if v := strings.TrimSpace(query.Get("date_from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.TransactionFilter{}, &core.ValidationError{Field: "date_from", Err: err}
		}
		filter.DateFrom = d
	}
	if v := strings.TrimSpace(query.Get("date_to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.TransactionFilter{}, &core.ValidationError{Field: "date_to", Err: err}
		}
		filter.DateTo = d
	}

	return filter, nil
}

// parseTransactionInput converts a decoded create request into an engine
// input, converting the amount to cents and the date to a calendar date.
func parseTransactionInput(req createTransactionRequest) (ledger.TransactionInput, error) {
	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		return ledger.TransactionInput{}, &core.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return ledger.TransactionInput{}, &core.ValidationError{Field: "date", Err: err}
	}

	return ledger.TransactionInput{
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(strings.TrimSpace(req.Type)),
		Category:    req.Category,
		Note:        req.Note,
		Date:        date,
		IsRecurring: req.IsRecurring,
		Recurrence:  core.Cadence(strings.TrimSpace(req.Recurrence)),
	}, nil
}

// decodeBody decodes a JSON request body into dst, rejecting oversized or
// malformed payloads.
func decodeBody(body io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
