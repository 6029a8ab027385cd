// Package budget tracks spending caps: multi-category Budget entities with
// their period and category links, and the independent single-category cap
// carried on Category itself. The two are computed separately and never
// merged.
package budget

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

// Tracker owns budgets and computes spend-vs-cap progress.
type Tracker struct {
	store store.Store
}

// New returns a tracker over the given store.
func New(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// CreateBudget validates and persists a budget. The budget row and its
// category links commit together; a failure on any link rolls back the row.
func (t *Tracker) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := t.resolveCategories(ctx, b); err != nil {
		return core.Budget{}, err
	}

	err := t.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertBudget(ctx, b); err != nil {
			return core.Persistencef("insert budget", err)
		}
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", b.ID, "user_id", b.UserID,
		"amount", b.Amount.String(), "categories", len(b.CategoryIDs))
	return b, nil
}

// UpdateBudget replaces a budget and its category links atomically.
func (t *Tracker) UpdateBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	existing, err := t.getBudget(ctx, b.ID)
	if err != nil {
		return err
	}
	if existing.UserID != b.UserID {
		return core.Referencef("budget %s does not belong to user %s", b.ID, b.UserID)
	}
	if err := t.resolveCategories(ctx, b); err != nil {
		return err
	}

	err = t.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateBudget(ctx, b); err != nil {
			return core.Persistencef("update budget", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Budget updated", "budget_id", b.ID)
	return nil
}

// DeleteBudget removes the user's budget and its links.
func (t *Tracker) DeleteBudget(ctx context.Context, userID, id string) error {
	b, err := t.getBudget(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return core.Referencef("budget %s does not belong to user %s", id, userID)
	}
	if err := t.store.DeleteBudget(ctx, id); err != nil {
		return core.Persistencef("delete budget", err)
	}
	slog.InfoContext(ctx, "Budget deleted", "budget_id", id)
	return nil
}

// Budgets returns the user's budgets ordered by id.
func (t *Tracker) Budgets(ctx context.Context, userID string) ([]core.Budget, error) {
	bs, err := t.store.ListBudgetsByUser(ctx, userID)
	if err != nil {
		return nil, core.Persistencef("list budgets", err)
	}
	return bs, nil
}

// Progress returns spent/amount for the budget as of asOf. Spent is the
// absolute sum of expense transactions in the linked categories, dated inside
// [StartDate, min(EndDate, asOf)], on accounts owned by the budget's user.
// The ratio is unclamped: above 1.0 signals overspend; clamping is a display
// concern.
func (t *Tracker) Progress(ctx context.Context, b core.Budget, asOf time.Time) (decimal.Decimal, error) {
	if !b.Amount.IsPositive() {
		return decimal.Zero, core.Validationf("budget amount must be positive")
	}

	end := core.DateOnly(b.EndDate)
	if cut := core.DateOnly(asOf); cut.Before(end) {
		end = cut
	}

	linked := make(map[string]bool, len(b.CategoryIDs))
	for _, id := range b.CategoryIDs {
		linked[id] = true
	}

	spent, err := t.spent(ctx, b.UserID, b.StartDate, end, func(categoryID string) bool {
		return linked[categoryID]
	})
	if err != nil {
		return decimal.Zero, err
	}
	return spent.Div(b.Amount), nil
}

// ProgressByID loads a budget and computes its progress.
func (t *Tracker) ProgressByID(ctx context.Context, userID, budgetID string, asOf time.Time) (decimal.Decimal, error) {
	b, err := t.getBudget(ctx, budgetID)
	if err != nil {
		return decimal.Zero, err
	}
	if b.UserID != userID {
		return decimal.Zero, core.Referencef("budget %s does not belong to user %s", budgetID, userID)
	}
	return t.Progress(ctx, b, asOf)
}

// CategoryProgress returns spent/cap for one category's own budget field over
// [start, end]. A category without a positive cap is a validation error.
func (t *Tracker) CategoryProgress(ctx context.Context, userID, categoryID string, start, end time.Time) (decimal.Decimal, error) {
	c, err := t.store.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, core.Referencef("category %s does not resolve", categoryID)
	}
	if err != nil {
		return decimal.Zero, core.Persistencef("get category", err)
	}
	if !c.ReachableBy(userID) {
		return decimal.Zero, core.Referencef("category %s is not reachable by user %s", categoryID, userID)
	}
	if c.Budget == nil || !c.Budget.IsPositive() {
		return decimal.Zero, core.Validationf("category %s has no positive budget", categoryID)
	}

	spent, err := t.spent(ctx, userID, start, end, func(id string) bool {
		return id == categoryID
	})
	if err != nil {
		return decimal.Zero, err
	}
	return spent.Div(*c.Budget), nil
}

// spent sums absolute expense amounts in [start, end] for categories accepted
// by match, over the user's accounts.
func (t *Tracker) spent(ctx context.Context, userID string, start, end time.Time, match func(categoryID string) bool) (decimal.Decimal, error) {
	txs, err := t.store.ListTransactionsByUser(ctx, userID, start, end)
	if err != nil {
		return decimal.Zero, core.Persistencef("list transactions", err)
	}
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != core.TypeExpense || !match(tx.CategoryID) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total, nil
}

func (t *Tracker) getBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := t.store.GetBudget(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Budget{}, core.Referencef("budget %s does not exist", id)
	}
	if err != nil {
		return core.Budget{}, core.Persistencef("get budget", err)
	}
	return b, nil
}

// resolveCategories verifies every linked category exists and is reachable by
// the budget's user. Surfaced before any persistence call is made.
func (t *Tracker) resolveCategories(ctx context.Context, b core.Budget) error {
	for _, id := range b.CategoryIDs {
		c, err := t.store.GetCategory(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return core.Referencef("category %s does not resolve", id)
		}
		if err != nil {
			return core.Persistencef("get category", err)
		}
		if !c.ReachableBy(b.UserID) {
			return core.Referencef("category %s is not reachable by user %s", id, b.UserID)
		}
	}
	return nil
}
