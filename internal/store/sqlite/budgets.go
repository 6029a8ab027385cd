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

func (s *Store) InsertBudget(ctx context.Context, b core.Budget) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, amount, start_date, end_date) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Amount.String(), fmtDate(b.StartDate), fmtDate(b.EndDate))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return s.insertBudgetLinks(ctx, b)
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE budgets SET user_id = ?, amount = ?, start_date = ?, end_date = ? WHERE id = ?`,
		b.UserID, b.Amount.String(), fmtDate(b.StartDate), fmtDate(b.EndDate), b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	// Category links are replaced wholesale.
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM budget_categories WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear budget links: %w", err)
	}
	return s.insertBudgetLinks(ctx, b)
}

func (s *Store) insertBudgetLinks(ctx context.Context, b core.Budget) error {
	for _, cid := range b.CategoryIDs {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO budget_categories (budget_id, category_id) VALUES (?, ?)`,
			b.ID, cid); err != nil {
			return fmt.Errorf("insert budget link: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

func (s *Store) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, amount, start_date, end_date FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, err
	}
	if b.CategoryIDs, err = s.budgetCategoryIDs(ctx, b.ID); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *Store) ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, amount, start_date, end_date FROM budgets WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].CategoryIDs, err = s.budgetCategoryIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) budgetCategoryIDs(ctx context.Context, budgetID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT category_id FROM budget_categories WHERE budget_id = ? ORDER BY category_id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget links: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan budget link: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanBudget(r rowScanner) (core.Budget, error) {
	var b core.Budget
	var amount, start, end string
	if err := r.Scan(&b.ID, &b.UserID, &amount, &start, &end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Budget{}, store.ErrNotFound
		}
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	var err error
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget amount %q: %w", amount, err)
	}
	if b.StartDate, err = parseDate(start); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget start %q: %w", start, err)
	}
	if b.EndDate, err = parseDate(end); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget end %q: %w", end, err)
	}
	return b, nil
}
