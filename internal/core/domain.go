package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

type (
	TransactionType string

	// Cadence is the recurrence interval of a recurring definition.
	Cadence string

	// Transaction is a single dated income or expense entry. Immutable once
	// created, except deletion. RecurrenceID links a materialized occurrence
	// back to the definition that generated it; zero for manual entries.
	Transaction struct {
		ID           int64           `json:"id"`
		Amount       Money           `json:"amount"`
		Type         TransactionType `json:"type"`
		Category     string          `json:"category"`
		Note         string          `json:"note"`
		Date         Date            `json:"date"`
		RecurrenceID int64           `json:"recurrence_source_id,omitempty"`
	}

	// RecurringDefinition is the template behind recurring transactions.
	// LastMaterialized tracks expansion progress; it starts at StartDate,
	// whose occurrence is materialized together with the definition.
	RecurringDefinition struct {
		ID               int64           `json:"id"`
		Amount           Money           `json:"amount"`
		Type             TransactionType `json:"type"`
		Category         string          `json:"category"`
		Note             string          `json:"note"`
		StartDate        Date            `json:"start_date"`
		Cadence          Cadence         `json:"cadence"`
		LastMaterialized Date            `json:"last_materialized_date"`
	}

	// Budget is a monthly spending limit for one expense category.
	Budget struct {
		ID       int64  `json:"id"`
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
	}

	// TransactionFilter combines optional predicates with logical AND.
	// Search matches case-insensitively as a substring of note or category.
	// Zero values mean "not set"; DateFrom/DateTo are inclusive.
	TransactionFilter struct {
		Search   string
		Type     TransactionType
		Category string
		DateFrom Date
		DateTo   Date
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrInvalidCadence = errors.New("invalid cadence")
	ErrEmptyCategory  = errors.New("empty category")
	ErrInvalidDate    = errors.New("invalid date")
)

// ValidationError reports a rejected input together with the field at fault.
// Rejections happen before any store mutation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c Cadence) Valid() bool {
	return c == Weekly || c == Monthly
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !t.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if t.Date.IsZero() {
		return invalid("date", ErrInvalidDate)
	}
	return nil
}

func (d RecurringDefinition) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !d.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if strings.TrimSpace(d.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if d.StartDate.IsZero() {
		return invalid("start_date", ErrInvalidDate)
	}
	if !d.Cadence.Valid() {
		return invalid("recurrence", ErrInvalidCadence)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if err := b.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	return nil
}

// Matches reports whether tx satisfies every predicate set on the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(tx.Note), q) &&
			!strings.Contains(strings.ToLower(tx.Category), q) {
			return false
		}
	}
	if !f.DateFrom.IsZero() && tx.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && tx.Date.After(f.DateTo) {
		return false
	}
	return true
}
