package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

const txColumns = `id, description, amount, date, type, account_id, category_id,
	recurring, recurrence_interval, recurrence_end_date, source_recurring_id, last_materialized`

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Description, t.Amount.String(), fmtDate(t.Date), string(t.Type),
		t.AccountID, nullStr(t.CategoryID), t.Recurring,
		nullStr(string(t.RecurrenceInterval)), nullDate(t.RecurrenceEndDate),
		nullStr(t.SourceRecurringID), nullDate(t.LastMaterialized))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET description = ?, amount = ?, date = ?, type = ?,
		 account_id = ?, category_id = ?, recurring = ?, recurrence_interval = ?,
		 recurrence_end_date = ?, source_recurring_id = ?, last_materialized = ?
		 WHERE id = ?`,
		t.Description, t.Amount.String(), fmtDate(t.Date), string(t.Type),
		t.AccountID, nullStr(t.CategoryID), t.Recurring,
		nullStr(string(t.RecurrenceInterval)), nullDate(t.RecurrenceEndDate),
		nullStr(t.SourceRecurringID), nullDate(t.LastMaterialized), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by account: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Store) ListTransactionsByUser(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	query := `SELECT t.id, t.description, t.amount, t.date, t.type, t.account_id, t.category_id,
		t.recurring, t.recurrence_interval, t.recurrence_end_date, t.source_recurring_id, t.last_materialized
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE a.owner_id = ?`
	args := []any{userID}
	if !start.IsZero() {
		query += ` AND t.date >= ?`
		args = append(args, fmtDate(start))
	}
	if !end.IsZero() {
		query += ` AND t.date <= ?`
		args = append(args, fmtDate(end))
	}
	query += ` ORDER BY t.id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions by user: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Store) ListTemplates(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE recurring = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Store) SetLastMaterialized(ctx context.Context, templateID string, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET last_materialized = ? WHERE id = ?`,
		fmtDate(at), templateID)
	if err != nil {
		return fmt.Errorf("set last materialized: %w", err)
	}
	return requireRow(res)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var amount, date, typ string
	var categoryID, interval, endDate, sourceID, lastMat sql.NullString
	err := r.Scan(&t.ID, &t.Description, &amount, &date, &typ, &t.AccountID,
		&categoryID, &t.Recurring, &interval, &endDate, &sourceID, &lastMat)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, store.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Date, err = parseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Type = core.TxType(typ)
	t.CategoryID = categoryID.String
	t.RecurrenceInterval = core.RecurrenceInterval(interval.String)
	t.SourceRecurringID = sourceID.String
	if endDate.Valid {
		if t.RecurrenceEndDate, err = parseDate(endDate.String); err != nil {
			return core.Transaction{}, fmt.Errorf("parse recurrence end date %q: %w", endDate.String, err)
		}
	}
	if lastMat.Valid {
		if t.LastMaterialized, err = parseDate(lastMat.String); err != nil {
			return core.Transaction{}, fmt.Errorf("parse last materialized %q: %w", lastMat.String, err)
		}
	}
	return t, nil
}
