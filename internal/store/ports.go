// Package store defines the persistence ports consumed by the ledger engine
// and a factory that selects a concrete adapter from configuration.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// ErrNotFound is returned by Get operations when no row matches.
var ErrNotFound = errors.New("not found")

// Accounts is the account persistence port.
type Accounts interface {
	InsertAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, id string) (core.Account, error)
	// ListAccountsByOwner returns the owner's accounts ordered by id.
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error)
	// AddToBalance applies a signed delta to the cached account balance.
	AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) error
}

// Categories is the category persistence port.
type Categories interface {
	InsertCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, id string) (core.Category, error)
	// ListCategoriesForUser returns standard categories plus the user's own,
	// ordered by id.
	ListCategoriesForUser(ctx context.Context, userID string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// ReassignTransactionCategory rewrites category references on all
	// transactions tagged with from. An empty to clears the reference.
	ReassignTransactionCategory(ctx context.Context, from, to string) error
	// UnlinkCategoryFromBudgets removes the category from every budget's
	// category set.
	UnlinkCategoryFromBudgets(ctx context.Context, categoryID string) error
}

// Transactions is the transaction persistence port.
type Transactions interface {
	InsertTransaction(ctx context.Context, t core.Transaction) error
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	// ListTransactionsByAccount returns the account's transactions ordered
	// by id.
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]core.Transaction, error)
	// ListTransactionsByUser returns transactions on accounts owned by the
	// user, dated inside [start, end] (zero bounds are open), ordered by id.
	ListTransactionsByUser(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error)
	// ListTemplates returns all recurring template transactions ordered by id.
	ListTemplates(ctx context.Context) ([]core.Transaction, error)
	// SetLastMaterialized advances a template's generation state.
	SetLastMaterialized(ctx context.Context, templateID string, at time.Time) error
}

// Budgets is the multi-category budget persistence port. Insert and Update
// cover both the budget row and its category links.
type Budgets interface {
	InsertBudget(ctx context.Context, b core.Budget) error
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id string) error
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	// ListBudgetsByUser returns the user's budgets ordered by id.
	ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error)
}

// Store is the full persistence collaborator.
type Store interface {
	Accounts
	Categories
	Transactions
	Budgets

	// WithTx runs fn against a transactional view of the store. The unit
	// commits when fn returns nil and rolls back when it returns an error;
	// the transaction resource is released on every exit path. Nested calls
	// join the enclosing transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}
