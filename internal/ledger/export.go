package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"tally/internal/core"
)

// csvHeader is the export column order. Amounts render with exactly two
// decimal places; fields containing delimiters or quotes are escaped per
// RFC 4180 by the csv writer.
var csvHeader = []string{"date", "type", "category", "amount", "note"}

// ExportCSV renders the transactions matching the filter as CSV text, one
// row per transaction in the same ordering as List.
func (s *Service) ExportCSV(ctx context.Context, filter core.TransactionFilter) ([]byte, error) {
	txs, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		record := []string{
			tx.Date.String(),
			string(tx.Type),
			tx.Category,
			tx.Amount.String(),
			tx.Note,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
