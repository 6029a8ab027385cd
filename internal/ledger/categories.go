package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

// CreateCategory adds a category. Standard categories are shared and carry no
// owner; custom categories belong to exactly one user.
func (l *Ledger) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := l.store.InsertCategory(ctx, c); err != nil {
		return core.Category{}, core.Persistencef("insert category", err)
	}
	slog.InfoContext(ctx, "Category created",
		"category_id", c.ID, "name", c.Name, "kind", string(c.Kind))
	return c, nil
}

// Categories returns the standard categories plus the user's own, ordered
// by id.
func (l *Ledger) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	cats, err := l.store.ListCategoriesForUser(ctx, userID)
	if err != nil {
		return nil, core.Persistencef("list categories", err)
	}
	return cats, nil
}

// SetCategoryBudget sets or clears (nil) the category's single-category cap.
// This cap is independent of the multi-category Budget entity.
func (l *Ledger) SetCategoryBudget(ctx context.Context, userID, categoryID string, budget *decimal.Decimal) error {
	c, err := l.ownedCategory(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if budget != nil && !budget.IsPositive() {
		return core.Validationf("category budget must be positive")
	}
	c.Budget = budget
	if err := l.store.UpdateCategory(ctx, c); err != nil {
		return core.Persistencef("update category", err)
	}
	return nil
}

// DeleteCategory removes a custom category after reassigning its dependents:
// transactions tagged with it move to reassignTo (or become uncategorized
// when reassignTo is empty) and budget links drop the category. The cascade
// and the delete commit together.
func (l *Ledger) DeleteCategory(ctx context.Context, userID, categoryID, reassignTo string) error {
	c, err := l.ownedCategory(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if c.Kind == core.KindStandard {
		return core.Validationf("standard categories cannot be deleted")
	}
	if reassignTo != "" {
		if reassignTo == categoryID {
			return core.Validationf("cannot reassign a category to itself")
		}
		target, err := l.store.GetCategory(ctx, reassignTo)
		if errors.Is(err, store.ErrNotFound) {
			return core.Referencef("reassignment category %s does not resolve", reassignTo)
		}
		if err != nil {
			return core.Persistencef("get category", err)
		}
		if !target.ReachableBy(userID) {
			return core.Referencef("reassignment category %s is not reachable by user %s", reassignTo, userID)
		}
	}

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.ReassignTransactionCategory(ctx, categoryID, reassignTo); err != nil {
			return core.Persistencef("reassign transactions", err)
		}
		if err := tx.UnlinkCategoryFromBudgets(ctx, categoryID); err != nil {
			return core.Persistencef("unlink budgets", err)
		}
		if err := tx.DeleteCategory(ctx, categoryID); err != nil {
			return core.Persistencef("delete category", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted",
		"category_id", categoryID, "reassigned_to", reassignTo)
	return nil
}

// ownedCategory resolves a category the user may modify: their own custom
// category, or a standard one for read-mostly operations.
func (l *Ledger) ownedCategory(ctx context.Context, userID, categoryID string) (core.Category, error) {
	c, err := l.store.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return core.Category{}, core.Referencef("category %s does not resolve", categoryID)
	}
	if err != nil {
		return core.Category{}, core.Persistencef("get category", err)
	}
	if c.Kind == core.KindCustom && c.OwnerID != userID {
		return core.Category{}, core.Referencef("category %s is not reachable by user %s", categoryID, userID)
	}
	return c, nil
}
