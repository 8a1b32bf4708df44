package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tally/internal/core"
)

var errInvalidMonths = errors.New("must be a positive month count")

// MonthlySeries returns exactly months entries for the most recent
// consecutive calendar months ending with the current one, oldest first.
// Months without transactions report zero income and expense; months are
// never skipped.
func (s *Service) MonthlySeries(ctx context.Context, months int) ([]core.MonthlyPoint, error) {
	if months < 1 {
		return nil, &core.ValidationError{Field: "months", Err: errInvalidMonths}
	}

	if err := s.ExpandDue(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	today := s.today()
	// Cache keys include the current month so entries go stale on rollover.
	key := fmt.Sprintf("%s:%d", today.MonthKey(), months)
	if points, ok := s.seriesCache.Get(key); ok {
		return points, nil
	}

	first := time.Date(today.Year(), time.Month(today.Month()-months+1), 1, 0, 0, 0, 0, time.UTC)
	txs, err := s.store.ListTransactions(ctx, core.TransactionFilter{
		DateFrom: core.DateOf(first),
		DateTo:   today.MonthEnd(),
	})
	if err != nil {
		return nil, err
	}

	points := make([]core.MonthlyPoint, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		label := first.AddDate(0, i, 0).Format("2006-01")
		points[i] = core.MonthlyPoint{Month: label}
		index[label] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Income:
			points[i].Income = points[i].Income.Add(tx.Amount)
		case core.Expense:
			points[i].Expense = points[i].Expense.Add(tx.Amount)
		}
	}

	s.seriesCache.Set(key, points)
	return points, nil
}

// CategoryBreakdown sums expense amounts per category within one calendar
// month window. month is a "YYYY-MM" label; empty means the current month.
// Categories without expenses are omitted; output is ordered by amount
// descending, category ascending on ties.
func (s *Service) CategoryBreakdown(ctx context.Context, month string) ([]core.CategorySpend, error) {
	window := core.Date{}
	if month == "" {
		window = s.today()
	} else {
		parsed, err := core.ParseDate(month + "-01")
		if err != nil {
			return nil, &core.ValidationError{Field: "month", Err: core.ErrInvalidDate}
		}
		window = parsed
	}

	if err := s.ExpandDue(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := "by-category:" + window.MonthKey()
	if spends, ok := s.breakdownCache.Get(key); ok {
		return spends, nil
	}

	txs, err := s.store.ListTransactions(ctx, core.TransactionFilter{
		Type:     core.Expense,
		DateFrom: window.MonthStart(),
		DateTo:   window.MonthEnd(),
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]core.Money)
	for _, tx := range txs {
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}

	spends := make([]core.CategorySpend, 0, len(totals))
	for category, amount := range totals {
		spends = append(spends, core.CategorySpend{Category: category, Amount: amount})
	}
	sort.Slice(spends, func(i, j int) bool {
		if spends[i].Amount.Cents != spends[j].Amount.Cents {
			return spends[i].Amount.Cents > spends[j].Amount.Cents
		}
		return spends[i].Category < spends[j].Category
	})

	s.breakdownCache.Set(key, spends)
	return spends, nil
}
