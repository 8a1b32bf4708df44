// Package ledger implements the ledger and analytics engine: transaction and
// budget operations, recurrence expansion, aggregate summaries and export.
//
// A Service owns its stores and serializes access: mutations
// (including materialization of recurring occurrences) are exclusive, reads
// run concurrently with each other but never with a mutation. Every
// operation first brings materialized occurrences current as of "now".
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/storage"
)

const (
	analyticsCacheSize = 64
	analyticsCacheTTL  = 5 * time.Minute
)

// Service is the engine instance. Construct once per process with New; all
// operations take the instance explicitly, there is no shared global state.
type Service struct {
	mu    sync.RWMutex
	store storage.Store
	now   func() time.Time

	seriesCache    *cache.LRUCache[[]core.MonthlyPoint]
	breakdownCache *cache.LRUCache[[]core.CategorySpend]
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		now:            time.Now,
		seriesCache:    cache.NewLRUCache[[]core.MonthlyPoint](analyticsCacheSize, analyticsCacheTTL),
		breakdownCache: cache.NewLRUCache[[]core.CategorySpend](analyticsCacheSize, analyticsCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today is the server-clock calendar date, evaluated at call time.
func (s *Service) today() core.Date {
	return core.DateOf(s.now())
}

func (s *Service) invalidateAnalytics() {
	s.seriesCache.Clear()
	s.breakdownCache.Clear()
}

// TransactionInput is a create request. Recurrence is only read when
// IsRecurring is set.
type TransactionInput struct {
	Amount      core.Money
	Type        core.TransactionType
	Category    string
	Note        string
	Date        core.Date
	IsRecurring bool
	Recurrence  core.Cadence
}

// CreateTransaction validates and records a transaction. When the input is
// recurring, a RecurringDefinition is created alongside and the transaction
// becomes its originating occurrence, with future occurrences materialized
// lazily by the expander. Nothing is written when validation fails.
func (s *Service) CreateTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{
		Amount:   in.Amount,
		Type:     in.Type,
		Category: strings.TrimSpace(in.Category),
		Note:     strings.TrimSpace(in.Note),
		Date:     in.Date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var def core.RecurringDefinition
	if in.IsRecurring {
		def = core.RecurringDefinition{
			Amount:           tx.Amount,
			Type:             tx.Type,
			Category:         tx.Category,
			Note:             tx.Note,
			StartDate:        tx.Date,
			Cadence:          in.Recurrence,
			LastMaterialized: tx.Date,
		}
		if err := def.Validate(); err != nil {
			return core.Transaction{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expandLocked(ctx); err != nil {
		return core.Transaction{}, err
	}

	if in.IsRecurring {
		defID, err := s.store.InsertDefinition(ctx, def)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("create recurring definition: %w", err)
		}
		tx.RecurrenceID = defID
	}

	id, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx.ID = id
	s.invalidateAnalytics()

	slog.InfoContext(ctx, "Transaction created",
		"id", tx.ID,
		"type", tx.Type,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.String(),
		"recurring", in.IsRecurring)

	return tx, nil
}

// DeleteTransaction removes a transaction. Deleting the originating
// occurrence of a recurring definition (the materialized row dated at the
// definition's start date) deletes the definition and every occurrence it
// generated, halting future expansion. Deleting a later occurrence removes
// only that row; expansion progress is untouched, so it is not recreated.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expandLocked(ctx); err != nil {
		return err
	}

	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	if tx.RecurrenceID != 0 {
		def, err := s.store.GetDefinition(ctx, tx.RecurrenceID)
		if err == nil && def.StartDate.Equal(tx.Date) {
			removed, err := s.store.DeleteByRecurrence(ctx, def.ID)
			if err != nil {
				return fmt.Errorf("delete occurrences: %w", err)
			}
			if err := s.store.DeleteDefinition(ctx, def.ID); err != nil {
				return fmt.Errorf("delete recurring definition: %w", err)
			}
			s.invalidateAnalytics()
			slog.InfoContext(ctx, "Recurring definition deleted with occurrences",
				"definition_id", def.ID,
				"occurrences_removed", removed)
			return nil
		}
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.invalidateAnalytics()
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// List returns transactions matching the filter, date descending with ties
// broken by insertion order descending.
func (s *Service) List(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	if err := s.ExpandDue(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ListTransactions(ctx, filter)
}

// Summary aggregates the entire ledger: total income, total expense and
// their difference. No time window.
func (s *Service) Summary(ctx context.Context) (core.Summary, error) {
	if err := s.ExpandDue(ctx); err != nil {
		return core.Summary{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, err := s.store.ListTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		return core.Summary{}, err
	}

	var sum core.Summary
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			sum.TotalIncome = sum.TotalIncome.Add(tx.Amount)
		case core.Expense:
			sum.TotalExpense = sum.TotalExpense.Add(tx.Amount)
		}
	}
	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpense)
	return sum, nil
}

// CreateBudget records a monthly limit for a category. Duplicate categories
// are allowed and tracked independently.
func (s *Service) CreateBudget(ctx context.Context, category string, amount core.Money) (core.BudgetStatus, error) {
	b := core.Budget{Category: strings.TrimSpace(category), Amount: amount}
	if err := b.Validate(); err != nil {
		return core.BudgetStatus{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expandLocked(ctx); err != nil {
		return core.BudgetStatus{}, err
	}

	id, err := s.store.InsertBudget(ctx, b)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id

	spent, err := s.spentByCategory(ctx)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	slog.InfoContext(ctx, "Budget created", "id", b.ID, "category", b.Category, "limit_cents", b.Amount.Cents)
	return core.BudgetStatus{Budget: b, Spent: spent[b.Category]}, nil
}

// UpdateBudget replaces a budget's category and limit.
func (s *Service) UpdateBudget(ctx context.Context, id int64, category string, amount core.Money) (core.BudgetStatus, error) {
	b := core.Budget{ID: id, Category: strings.TrimSpace(category), Amount: amount}
	if err := b.Validate(); err != nil {
		return core.BudgetStatus{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expandLocked(ctx); err != nil {
		return core.BudgetStatus{}, err
	}

	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return core.BudgetStatus{}, err
	}

	spent, err := s.spentByCategory(ctx)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	slog.InfoContext(ctx, "Budget updated", "id", b.ID, "category", b.Category, "limit_cents", b.Amount.Cents)
	return core.BudgetStatus{Budget: b, Spent: spent[b.Category]}, nil
}

// DeleteBudget removes a budget by id.
func (s *Service) DeleteBudget(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget deleted", "id", id)
	return nil
}

// BudgetsWithSpent lists budgets with their derived current-month spend:
// the sum of expense transactions in the budget's category dated within the
// current calendar month, evaluated against the server clock at call time.
func (s *Service) BudgetsWithSpent(ctx context.Context) ([]core.BudgetStatus, error) {
	if err := s.ExpandDue(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	spent, err := s.spentByCategory(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]core.BudgetStatus, len(budgets))
	for i, b := range budgets {
		statuses[i] = core.BudgetStatus{Budget: b, Spent: spent[b.Category]}
	}
	return statuses, nil
}

// spentByCategory sums current-month expenses per category. Callers must
// hold at least a read lock.
func (s *Service) spentByCategory(ctx context.Context) (map[string]core.Money, error) {
	today := s.today()
	txs, err := s.store.ListTransactions(ctx, core.TransactionFilter{
		Type:     core.Expense,
		DateFrom: today.MonthStart(),
		DateTo:   today.MonthEnd(),
	})
	if err != nil {
		return nil, fmt.Errorf("list current month expenses: %w", err)
	}

	spent := make(map[string]core.Money, len(txs))
	for _, tx := range txs {
		spent[tx.Category] = spent[tx.Category].Add(tx.Amount)
	}
	return spent, nil
}

// NotFound reports whether err means an unknown id.
func NotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
