package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

// ExpandDue materializes every due occurrence of every recurring definition
// up to today. It runs inline at the start of each engine operation, never
// on a timer, so results are immediately consistent with newly materialized
// occurrences.
//
// Idempotent: progress is tracked through each definition's
// last_materialized_date, so repeated calls for the same "now" insert
// nothing. For a fixed start date, cadence and "now" the occurrence set is
// fully determined.
func (s *Service) ExpandDue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expandLocked(ctx)
}

// expandLocked does the work of ExpandDue. Callers must hold the write lock.
func (s *Service) expandLocked(ctx context.Context) error {
	defs, err := s.store.ListDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("list recurring definitions: %w", err)
	}

	today := s.today()
	materialized := 0

	for _, def := range defs {
		anchorDay := def.StartDate.Day()
		next := core.Advance(def.LastMaterialized, def.Cadence, anchorDay)

		for !next.After(today) {
			occurrence := core.Transaction{
				Amount:       def.Amount,
				Type:         def.Type,
				Category:     def.Category,
				Note:         def.Note,
				Date:         next,
				RecurrenceID: def.ID,
			}
			_, err := s.store.InsertTransaction(ctx, occurrence)
			switch {
			case err == nil:
				materialized++
			case errors.Is(err, storage.ErrDuplicateOccurrence):
				// Row already exists; just advance progress past it.
			default:
				return fmt.Errorf("materialize occurrence (definition=%d, date=%s): %w",
					def.ID, next.String(), err)
			}

			if err := s.store.SetLastMaterialized(ctx, def.ID, next); err != nil {
				return fmt.Errorf("advance recurring definition %d: %w", def.ID, err)
			}
			next = core.Advance(next, def.Cadence, anchorDay)
		}
	}

	if materialized > 0 {
		s.invalidateAnalytics()
		slog.InfoContext(ctx, "Materialized recurring occurrences",
			"count", materialized,
			"definitions", len(defs),
			"as_of", today.String())
	}
	return nil
}
