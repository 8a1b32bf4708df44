package memory

import (
	"context"
	"errors"
	"testing"

	"tally/internal/core"
	"tally/internal/storage"
)

func insertTx(t *testing.T, s *Store, tx core.Transaction) int64 {
	t.Helper()
	id, err := s.InsertTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return id
}

func TestTransactionOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x", Date: core.NewDate(2025, 3, 1)})
	b := insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 200}, Type: core.Expense, Category: "x", Date: core.NewDate(2025, 3, 5)})
	c := insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 300}, Type: core.Expense, Category: "x", Date: core.NewDate(2025, 3, 5)})

	txs, err := s.ListTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Date descending; same-date ties by id descending.
	got := []int64{txs[0].ID, txs[1].ID, txs[2].ID}
	want := []int64{c, b, a}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected id %d, got %d", i, want[i], got[i])
		}
	}
}

func TestFilterPredicatesCombineWithAnd(t *testing.T) {
	s := New()
	ctx := context.Background()

	insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "food", Note: "lunch", Date: core.NewDate(2025, 3, 5)})
	insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 200}, Type: core.Income, Category: "food", Note: "refund", Date: core.NewDate(2025, 3, 5)})
	insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 300}, Type: core.Expense, Category: "rent", Note: "lunch", Date: core.NewDate(2025, 3, 5)})

	txs, err := s.ListTransactions(ctx, core.TransactionFilter{Type: core.Expense, Category: "food"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].Note != "lunch" || txs[0].Category != "food" {
		t.Fatalf("expected single expense in food, got %+v", txs)
	}
}

func TestDuplicateOccurrenceRejected(t *testing.T) {
	s := New()

	occurrence := core.Transaction{
		Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x",
		Date: core.NewDate(2025, 3, 5), RecurrenceID: 7,
	}
	insertTx(t, s, occurrence)

	_, err := s.InsertTransaction(context.Background(), occurrence)
	if !errors.Is(err, storage.ErrDuplicateOccurrence) {
		t.Fatalf("expected ErrDuplicateOccurrence, got %v", err)
	}

	// Same definition on another date is fine, as is the same date without
	// a recurrence link.
	occurrence.Date = core.NewDate(2025, 4, 5)
	insertTx(t, s, occurrence)
	insertTx(t, s, core.Transaction{
		Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x",
		Date: core.NewDate(2025, 3, 5),
	})
}

func TestDeleteByRecurrence(t *testing.T) {
	s := New()
	ctx := context.Background()

	insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x", Date: core.NewDate(2025, 1, 1), RecurrenceID: 3})
	insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x", Date: core.NewDate(2025, 2, 1), RecurrenceID: 3})
	keep := insertTx(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x", Date: core.NewDate(2025, 1, 1)})

	removed, err := s.DeleteByRecurrence(ctx, 3)
	if err != nil {
		t.Fatalf("delete by recurrence: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	txs, _ := s.ListTransactions(ctx, core.TransactionFilter{})
	if len(txs) != 1 || txs[0].ID != keep {
		t.Fatalf("unlinked transaction must survive, got %+v", txs)
	}
}

func TestNotFoundErrors(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetTransaction(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get transaction: %v", err)
	}
	if err := s.DeleteTransaction(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete transaction: %v", err)
	}
	if _, err := s.GetDefinition(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get definition: %v", err)
	}
	if err := s.SetLastMaterialized(ctx, 1, core.NewDate(2025, 1, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("set last materialized: %v", err)
	}
	if err := s.UpdateBudget(ctx, core.Budget{ID: 1}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update budget: %v", err)
	}
	if err := s.DeleteBudget(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete budget: %v", err)
	}
}

func TestDefinitionProgress(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.InsertDefinition(ctx, core.RecurringDefinition{
		Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "x",
		StartDate: core.NewDate(2025, 1, 31), Cadence: core.Monthly,
		LastMaterialized: core.NewDate(2025, 1, 31),
	})
	if err != nil {
		t.Fatalf("insert definition: %v", err)
	}

	next := core.NewDate(2025, 2, 28)
	if err := s.SetLastMaterialized(ctx, id, next); err != nil {
		t.Fatalf("advance: %v", err)
	}
	def, err := s.GetDefinition(ctx, id)
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if !def.LastMaterialized.Equal(next) {
		t.Fatalf("progress not persisted: %s", def.LastMaterialized)
	}
}

func TestBudgetListOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.InsertBudget(ctx, core.Budget{Category: "travel", Amount: core.Money{Cents: 100}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.InsertBudget(ctx, core.Budget{Category: "food", Amount: core.Money{Cents: 200}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	budgets, err := s.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(budgets) != 2 || budgets[0].Category != "food" || budgets[1].Category != "travel" {
		t.Fatalf("expected category-ascending order, got %+v", budgets)
	}
}
