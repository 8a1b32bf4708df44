// Package memory provides the in-process storage backend. It is the default
// backend and the fixture the engine tests run against.
package memory

import (
	"context"
	"sort"
	"sync"

	"tally/internal/core"
	"tally/internal/storage"
)

// Store keeps all three logical stores behind one RWMutex: mutations are
// exclusive, reads run concurrently with each other.
type Store struct {
	mu sync.RWMutex

	nextTxID     int64
	nextDefID    int64
	nextBudgetID int64

	transactions []core.Transaction
	definitions  []core.RecurringDefinition
	budgets      []core.Budget
}

func New() *Store {
	return &Store{}
}

func (s *Store) Close() error { return nil }

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.RecurrenceID != 0 {
		for _, existing := range s.transactions {
			if existing.RecurrenceID == tx.RecurrenceID && existing.Date.Equal(tx.Date) {
				return 0, storage.ErrDuplicateOccurrence
			}
		}
	}

	s.nextTxID++
	tx.ID = s.nextTxID
	s.transactions = append(s.transactions, tx)
	return tx.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, storage.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range s.transactions {
		if tx.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteByRecurrence(_ context.Context, recurrenceID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.transactions[:0]
	removed := 0
	for _, tx := range s.transactions {
		if tx.RecurrenceID == recurrenceID {
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	s.transactions = kept
	return removed, nil
}

func (s *Store) ListTransactions(_ context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]core.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if filter.Matches(tx) {
			result = append(result, tx)
		}
	}

	// Date descending; insertion order (id) descending breaks ties.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func (s *Store) InsertDefinition(_ context.Context, def core.RecurringDefinition) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDefID++
	def.ID = s.nextDefID
	s.definitions = append(s.definitions, def)
	return def.ID, nil
}

func (s *Store) GetDefinition(_ context.Context, id int64) (core.RecurringDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, def := range s.definitions {
		if def.ID == id {
			return def, nil
		}
	}
	return core.RecurringDefinition{}, storage.ErrNotFound
}

func (s *Store) ListDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]core.RecurringDefinition, len(s.definitions))
	copy(result, s.definitions)
	return result, nil
}

func (s *Store) SetLastMaterialized(_ context.Context, id int64, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.definitions {
		if s.definitions[i].ID == id {
			s.definitions[i].LastMaterialized = date
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteDefinition(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, def := range s.definitions {
		if def.ID == id {
			s.definitions = append(s.definitions[:i], s.definitions[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) InsertBudget(_ context.Context, b core.Budget) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBudgetID++
	b.ID = s.nextBudgetID
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.budgets {
		if s.budgets[i].ID == b.ID {
			s.budgets[i] = b
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.budgets {
		if b.ID == id {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]core.Budget, len(s.budgets))
	copy(result, s.budgets)
	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
