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

func (s *Store) InsertCategory(ctx context.Context, c core.Category) error {
	var budget any
	if c.Budget != nil {
		budget = c.Budget.String()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO categories (id, name, color, kind, owner_id, budget) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, string(c.Kind), c.OwnerID, budget)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, color, kind, owner_id, budget FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

func (s *Store) ListCategoriesForUser(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, color, kind, owner_id, budget FROM categories
		 WHERE kind = 'standard' OR owner_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	var budget any
	if c.Budget != nil {
		budget = c.Budget.String()
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, kind = ?, owner_id = ?, budget = ? WHERE id = ?`,
		c.Name, c.Color, string(c.Kind), c.OwnerID, budget, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ReassignTransactionCategory(ctx context.Context, from, to string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE category_id = ?`,
		nullStr(to), from)
	if err != nil {
		return fmt.Errorf("reassign transaction category: %w", err)
	}
	return nil
}

func (s *Store) UnlinkCategoryFromBudgets(ctx context.Context, categoryID string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM budget_categories WHERE category_id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("unlink category from budgets: %w", err)
	}
	return nil
}

func scanCategory(r rowScanner) (core.Category, error) {
	var c core.Category
	var kind string
	var budget sql.NullString
	if err := r.Scan(&c.ID, &c.Name, &c.Color, &kind, &c.OwnerID, &budget); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, store.ErrNotFound
		}
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.Kind = core.CategoryKind(kind)
	if budget.Valid {
		b, err := decimal.NewFromString(budget.String)
		if err != nil {
			return core.Category{}, fmt.Errorf("parse category budget %q: %w", budget.String, err)
		}
		c.Budget = &b
	}
	return c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
