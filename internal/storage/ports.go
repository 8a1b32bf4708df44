// Package storage defines the ports the ledger engine persists through.
// Two backends implement them: an in-memory store (default, also the test
// fixture) and a SQLite store for durable single-file persistence.
package storage

import (
	"context"
	"errors"

	"tally/internal/core"
)

var (
	// ErrNotFound reports a delete or lookup by an unknown id. Non-fatal.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOccurrence reports an attempt to materialize the same
	// (recurrence_source_id, date) pair twice.
	ErrDuplicateOccurrence = errors.New("occurrence already materialized")
)

type (
	// TransactionStore is the durable transaction mapping. List returns
	// transactions ordered by date descending, ties broken by insertion
	// order descending.
	TransactionStore interface {
		InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
		// DeleteByRecurrence removes every occurrence generated by the
		// given definition and returns how many rows went away.
		DeleteByRecurrence(ctx context.Context, recurrenceID int64) (int, error)
		ListTransactions(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error)
	}

	// RecurrenceStore holds recurring definitions and their expansion
	// progress.
	RecurrenceStore interface {
		InsertDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error)
		GetDefinition(ctx context.Context, id int64) (core.RecurringDefinition, error)
		ListDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
		SetLastMaterialized(ctx context.Context, id int64, date core.Date) error
		DeleteDefinition(ctx context.Context, id int64) error
	}

	// BudgetStore holds per-category monthly limits. Duplicate categories
	// are allowed and tracked independently. List returns budgets ordered
	// by category, then id.
	BudgetStore interface {
		InsertBudget(ctx context.Context, b core.Budget) (int64, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id int64) error
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	// Store is the full persistence surface the engine operates on.
	Store interface {
		TransactionStore
		RecurrenceStore
		BudgetStore
		Close() error
	}
)
