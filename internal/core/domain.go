// Package core holds the domain types of the ledger engine: accounts,
// categories, transactions, budgets, and the error kinds they surface.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user-owned money container. Balance is a cached aggregate
// maintained incrementally by the ledger; it equals the sum of signed amounts
// of all non-deleted transactions referencing the account.
type Account struct {
	ID      string
	OwnerID string
	Name    string
	Balance decimal.Decimal
}

// CategoryKind distinguishes shared standard categories from user-owned ones.
type CategoryKind string

const (
	// KindStandard categories are shared across all users and immutable.
	KindStandard CategoryKind = "standard"
	// KindCustom categories belong to exactly one user.
	KindCustom CategoryKind = "custom"
)

// Valid reports whether the kind is one of the known variants.
func (k CategoryKind) Valid() bool {
	return k == KindStandard || k == KindCustom
}

// Category tags transactions. Budget is an independent single-category cap,
// distinct from the multi-category Budget entity; both can apply to the same
// category at once and report consumers reconcile them.
type Category struct {
	ID      string
	Name    string
	Color   string
	Kind    CategoryKind
	OwnerID string // empty for standard categories
	Budget  *decimal.Decimal
}

// ReachableBy reports whether userID may reference this category.
func (c Category) ReachableBy(userID string) bool {
	return c.Kind == KindStandard || c.OwnerID == userID
}

// Validate checks structural invariants on the category itself.
func (c Category) Validate() error {
	if c.Name == "" {
		return Validationf("category name is empty")
	}
	if !c.Kind.Valid() {
		return Validationf("unknown category kind %q", c.Kind)
	}
	if c.Kind == KindCustom && c.OwnerID == "" {
		return Validationf("custom category has no owner")
	}
	if c.Kind == KindStandard && c.OwnerID != "" {
		return Validationf("standard category must not have an owner")
	}
	if c.Budget != nil && !c.Budget.IsPositive() {
		return Validationf("category budget must be positive")
	}
	return nil
}

// Budget is a spending cap shared across the linked categories for the
// period [StartDate, EndDate].
type Budget struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	CategoryIDs []string
}

// Validate checks the budget's own invariants. Category reachability is
// checked against the store by the tracker, not here.
func (b Budget) Validate() error {
	if b.UserID == "" {
		return Validationf("budget has no user")
	}
	if !b.Amount.IsPositive() {
		return Validationf("budget amount must be positive")
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return Validationf("budget period is incomplete")
	}
	if b.EndDate.Before(b.StartDate) {
		return Validationf("budget end date precedes start date")
	}
	if len(b.CategoryIDs) == 0 {
		return Validationf("budget links no categories")
	}
	return nil
}
