// Package sqlite provides the durable storage backend on a single SQLite
// file, using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tally/internal/core"
	"tally/internal/storage"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (amount_cents, type, category, note, date, recurrence_source_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Amount.Cents, string(tx.Type), tx.Category, tx.Note, tx.Date.String(), nullableID(tx.RecurrenceID))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, storage.ErrDuplicateOccurrence
		}
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, type, category, note, date, recurrence_source_id
		 FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteByRecurrence(ctx context.Context, recurrenceID int64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE recurrence_source_id = ?`, recurrenceID)
	if err != nil {
		return 0, fmt.Errorf("delete occurrences: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

func (r *Repository) ListTransactions(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, "(LOWER(note) LIKE ? OR LOWER(category) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if !filter.DateFrom.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.DateFrom.String())
	}
	if !filter.DateTo.IsZero() {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.DateTo.String())
	}

	query := `SELECT id, amount_cents, type, category, note, date, recurrence_source_id
		FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

func (r *Repository) InsertDefinition(ctx context.Context, def core.RecurringDefinition) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions
		 (amount_cents, type, category, note, start_date, cadence, last_materialized_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		def.Amount.Cents, string(def.Type), def.Category, def.Note,
		def.StartDate.String(), string(def.Cadence), def.LastMaterialized.String())
	if err != nil {
		return 0, fmt.Errorf("insert definition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) GetDefinition(ctx context.Context, id int64) (core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, type, category, note, start_date, cadence, last_materialized_date
		 FROM recurring_definitions WHERE id = ?`, id)
	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringDefinition{}, storage.ErrNotFound
	}
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("get definition: %w", err)
	}
	return def, nil
}

func (r *Repository) ListDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, type, category, note, start_date, cadence, last_materialized_date
		 FROM recurring_definitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	definitions := make([]core.RecurringDefinition, 0)
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		definitions = append(definitions, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate definitions: %w", err)
	}
	return definitions, nil
}

func (r *Repository) SetLastMaterialized(ctx context.Context, id int64, date core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET last_materialized_date = ? WHERE id = ?`,
		date.String(), id)
	if err != nil {
		return fmt.Errorf("set last materialized: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteDefinition(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) InsertBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category, amount_cents) VALUES (?, ?)`,
		b.Category, b.Amount.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount_cents = ? WHERE id = ?`,
		b.Category, b.Amount.Cents, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount_cents FROM budgets ORDER BY category, id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := make([]core.Budget, 0)
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Category, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		txType     string
		dateStr    string
		recurrence sql.NullInt64
	)
	if err := row.Scan(&tx.ID, &tx.Amount.Cents, &txType, &tx.Category, &tx.Note, &dateStr, &recurrence); err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", dateStr, err)
	}
	tx.Type = core.TransactionType(txType)
	tx.Date = date
	if recurrence.Valid {
		tx.RecurrenceID = recurrence.Int64
	}
	return tx, nil
}

func scanDefinition(row rowScanner) (core.RecurringDefinition, error) {
	var (
		def               core.RecurringDefinition
		defType, cadence  string
		startStr, lastStr string
	)
	if err := row.Scan(&def.ID, &def.Amount.Cents, &defType, &def.Category, &def.Note, &startStr, &cadence, &lastStr); err != nil {
		return core.RecurringDefinition{}, err
	}
	start, err := core.ParseDate(startStr)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse start date %q: %w", startStr, err)
	}
	last, err := core.ParseDate(lastStr)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse last materialized date %q: %w", lastStr, err)
	}
	def.Type = core.TransactionType(defType)
	def.Cadence = core.Cadence(cadence)
	def.StartDate = start
	def.LastMaterialized = last
	return def, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
