// Package ledger keeps account balances consistent as transactions are
// created, edited, deleted, or transferred. Every mutation runs inside a
// scoped store transaction: validate first, persist, then update the cached
// balance, so a persistence failure leaves balances untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

// Ledger owns accounts, categories, and transactions.
type Ledger struct {
	store store.Store
}

// New returns a ledger over the given store.
func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// CreateAccount adds an account for ownerID. A non-zero opening balance is
// recorded as a seed transaction dated at, with no category and the fixed
// opening-balance description, so the balance invariant holds from day one.
func (l *Ledger) CreateAccount(ctx context.Context, ownerID, name string, opening decimal.Decimal, at time.Time) (core.Account, error) {
	if ownerID == "" {
		return core.Account{}, core.Validationf("account has no owner")
	}
	if name == "" {
		return core.Account{}, core.Validationf("account name is empty")
	}

	a := core.Account{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Balance: decimal.Zero,
	}

	err := l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertAccount(ctx, a); err != nil {
			return core.Persistencef("insert account", err)
		}
		if opening.IsZero() {
			return nil
		}
		seed := core.Transaction{
			ID:          uuid.NewString(),
			Description: core.OpeningBalanceDescription,
			Amount:      opening.Abs(),
			Date:        core.DateOnly(at),
			Type:        core.TypeIncome,
			AccountID:   a.ID,
		}
		if opening.IsNegative() {
			seed.Type = core.TypeExpense
		}
		if err := tx.InsertTransaction(ctx, seed); err != nil {
			return core.Persistencef("insert opening balance", err)
		}
		if err := tx.AddToBalance(ctx, a.ID, seed.SignedAmount()); err != nil {
			return core.Persistencef("apply opening balance", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	a.Balance = opening
	slog.InfoContext(ctx, "Account created",
		"account_id", a.ID, "owner_id", ownerID, "opening", opening.String())
	return a, nil
}

// AddTransaction validates the transaction's references, persists it, and
// applies its signed amount to the owning account.
func (l *Ledger) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Date = core.DateOnly(t.Date)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	account, err := l.resolveAccount(ctx, t.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := l.resolveCategory(ctx, t.CategoryID, account.OwnerID); err != nil {
		return core.Transaction{}, err
	}

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return core.Persistencef("insert transaction", err)
		}
		if err := tx.AddToBalance(ctx, t.AccountID, t.SignedAmount()); err != nil {
			return core.Persistencef("apply balance delta", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction added",
		"transaction_id", t.ID, "account_id", t.AccountID,
		"type", string(t.Type), "amount", t.Amount.String(), "recurring", t.Recurring)
	return t, nil
}

// UpdateTransaction replaces a stored transaction and reconciles balances: the
// old delta is reversed on the old account, the new delta applied to the new
// one (a single combined delta when the account is unchanged).
func (l *Ledger) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	old, err := l.getTransaction(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Date = core.DateOnly(t.Date)
	// Generation state and template lineage are not caller-editable.
	t.SourceRecurringID = old.SourceRecurringID
	t.LastMaterialized = old.LastMaterialized
	if err := t.Validate(); err != nil {
		return err
	}

	account, err := l.resolveAccount(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if err := l.resolveCategory(ctx, t.CategoryID, account.OwnerID); err != nil {
		return err
	}

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return core.Persistencef("update transaction", err)
		}
		if old.AccountID == t.AccountID {
			delta := t.SignedAmount().Sub(old.SignedAmount())
			if err := tx.AddToBalance(ctx, t.AccountID, delta); err != nil {
				return core.Persistencef("apply balance delta", err)
			}
			return nil
		}
		if err := tx.AddToBalance(ctx, old.AccountID, old.SignedAmount().Neg()); err != nil {
			return core.Persistencef("reverse old balance delta", err)
		}
		if err := tx.AddToBalance(ctx, t.AccountID, t.SignedAmount()); err != nil {
			return core.Persistencef("apply new balance delta", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", t.ID, "account_id", t.AccountID, "amount", t.Amount.String())
	return nil
}

// DeleteTransaction reverses the transaction's balance effect and removes the
// record. Deleting a template stops future materialization; instances already
// materialized from it are independently owned and stay.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	t, err := l.getTransaction(ctx, id)
	if err != nil {
		return err
	}

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.AddToBalance(ctx, t.AccountID, t.SignedAmount().Neg()); err != nil {
			return core.Persistencef("reverse balance delta", err)
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return core.Persistencef("delete transaction", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id, "account_id", t.AccountID, "was_template", t.Recurring)
	return nil
}

// ConvertRecurringToRegular turns a template into an ordinary transaction:
// the recurrence rule is cleared, the balance effect is unchanged.
func (l *Ledger) ConvertRecurringToRegular(ctx context.Context, id string) error {
	t, err := l.getTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !t.Recurring {
		return core.Validationf("transaction %s is not a recurring template", id)
	}

	t.Recurring = false
	t.RecurrenceInterval = ""
	t.RecurrenceEndDate = time.Time{}
	t.LastMaterialized = time.Time{}

	if err := l.store.UpdateTransaction(ctx, t); err != nil {
		return core.Persistencef("convert template", err)
	}
	slog.InfoContext(ctx, "Template converted to regular transaction", "transaction_id", id)
	return nil
}

// Transfer moves amount between two accounts as an atomic pair: an expense
// leg on from and an income leg on to, both uncategorized. Either both legs
// persist and both balances move, or neither does.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, date time.Time) (debit, credit core.Transaction, err error) {
	if !amount.IsPositive() {
		return debit, credit, core.Validationf("transfer amount must be positive")
	}
	if fromID == toID {
		return debit, credit, core.Validationf("transfer requires two distinct accounts")
	}
	from, err := l.resolveAccount(ctx, fromID)
	if err != nil {
		return debit, credit, err
	}
	to, err := l.resolveAccount(ctx, toID)
	if err != nil {
		return debit, credit, err
	}

	date = core.DateOnly(date)
	debit = core.Transaction{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Transfer to %s", to.Name),
		Amount:      amount,
		Date:        date,
		Type:        core.TypeExpense,
		AccountID:   from.ID,
	}
	credit = core.Transaction{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Transfer from %s", from.Name),
		Amount:      amount,
		Date:        date,
		Type:        core.TypeIncome,
		AccountID:   to.ID,
	}

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertTransaction(ctx, debit); err != nil {
			return core.Persistencef("insert debit leg", err)
		}
		if err := tx.AddToBalance(ctx, from.ID, debit.SignedAmount()); err != nil {
			return core.Persistencef("apply debit delta", err)
		}
		if err := tx.InsertTransaction(ctx, credit); err != nil {
			return core.Persistencef("insert credit leg", err)
		}
		if err := tx.AddToBalance(ctx, to.ID, credit.SignedAmount()); err != nil {
			return core.Persistencef("apply credit delta", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transfer completed",
		"from", from.ID, "to", to.ID, "amount", amount.String())
	return debit, credit, nil
}

// Transaction returns a stored transaction by id.
func (l *Ledger) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	return l.getTransaction(ctx, id)
}

// Account returns a stored account by id.
func (l *Ledger) Account(ctx context.Context, id string) (core.Account, error) {
	return l.resolveAccount(ctx, id)
}

// OverallBalance sums the cached balances of all accounts owned by userID.
func (l *Ledger) OverallBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	accounts, err := l.store.ListAccountsByOwner(ctx, userID)
	if err != nil {
		return decimal.Zero, core.Persistencef("list accounts", err)
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total, nil
}

// Accounts returns the user's accounts ordered by id.
func (l *Ledger) Accounts(ctx context.Context, userID string) ([]core.Account, error) {
	accounts, err := l.store.ListAccountsByOwner(ctx, userID)
	if err != nil {
		return nil, core.Persistencef("list accounts", err)
	}
	return accounts, nil
}

// Transactions returns the user's transactions inside [start, end] ordered
// by id. Zero bounds are open.
func (l *Ledger) Transactions(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	ts, err := l.store.ListTransactionsByUser(ctx, userID, start, end)
	if err != nil {
		return nil, core.Persistencef("list transactions", err)
	}
	return ts, nil
}

func (l *Ledger) resolveAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := l.store.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Account{}, core.Validationf("account %s does not exist", id)
	}
	if err != nil {
		return core.Account{}, core.Persistencef("get account", err)
	}
	return a, nil
}

// resolveCategory checks that a category reference resolves and is reachable
// by the account owner. An empty id (uncategorized) always passes.
func (l *Ledger) resolveCategory(ctx context.Context, id, userID string) error {
	if id == "" {
		return nil
	}
	c, err := l.store.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Referencef("category %s does not resolve", id)
	}
	if err != nil {
		return core.Persistencef("get category", err)
	}
	if !c.ReachableBy(userID) {
		return core.Referencef("category %s is not reachable by user %s", id, userID)
	}
	return nil
}

func (l *Ledger) getTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := l.store.GetTransaction(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Transaction{}, core.Referencef("transaction %s does not exist", id)
	}
	if err != nil {
		return core.Transaction{}, core.Persistencef("get transaction", err)
	}
	return t, nil
}
