package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

func (s *Store) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (id, owner_id, name, balance) VALUES (?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Balance.String())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, balance FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, owner_id, name, balance FROM accounts WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	// Balances are stored as decimal strings, so the arithmetic happens here
	// rather than in SQL.
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`,
		a.Balance.Add(delta).String(), accountID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (core.Account, error) {
	var a core.Account
	var balance string
	if err := r.Scan(&a.ID, &a.OwnerID, &a.Name, &balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, store.ErrNotFound
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	a.Balance = b
	return a, nil
}
