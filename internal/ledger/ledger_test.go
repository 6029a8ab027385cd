package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
	"tally/internal/store/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st), st
}

func mustAccount(t *testing.T, l *Ledger, owner, name string, opening decimal.Decimal) core.Account {
	t.Helper()
	a, err := l.CreateAccount(context.Background(), owner, name, opening, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func mustBalance(t *testing.T, l *Ledger, accountID string, want decimal.Decimal) {
	t.Helper()
	a, err := l.store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !a.Balance.Equal(want) {
		t.Fatalf("balance = %s, want %s", a.Balance, want)
	}
}

func TestCreateAccountSeedsOpeningBalance(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	a := mustAccount(t, l, "u1", "checking", dec(500))
	mustBalance(t, l, a.ID, dec(500))

	txs, err := l.Transactions(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 seed transaction, got %d", len(txs))
	}
	if !txs[0].IsOpeningBalance() {
		t.Fatalf("seed transaction not recognized as opening balance: %+v", txs[0])
	}
	if txs[0].Type != core.TypeIncome || !txs[0].Amount.Equal(dec(500)) {
		t.Fatalf("unexpected seed: type=%s amount=%s", txs[0].Type, txs[0].Amount)
	}
}

func TestCreateAccountNegativeOpening(t *testing.T) {
	l, _ := newLedger(t)
	a := mustAccount(t, l, "u1", "overdrawn", dec(-40))
	mustBalance(t, l, a.ID, dec(-40))
}

func TestCreateAccountZeroOpeningHasNoSeed(t *testing.T) {
	l, _ := newLedger(t)
	mustAccount(t, l, "u1", "empty", decimal.Zero)
	txs, err := l.Transactions(context.Background(), "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no seed transaction, got %d", len(txs))
	}
}

func TestAddTransactionUpdatesBalance(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", decimal.Zero)

	if _, err := l.AddTransaction(ctx, core.Transaction{
		Description: "salary", Amount: dec(50), Date: date(2024, time.January, 5),
		Type: core.TypeIncome, AccountID: a.ID,
	}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	added, err := l.AddTransaction(ctx, core.Transaction{
		Description: "bonus", Amount: dec(100), Date: date(2024, time.January, 6),
		Type: core.TypeIncome, AccountID: a.ID,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	mustBalance(t, l, a.ID, dec(150))

	// Deleting reverses exactly the deleted delta.
	if err := l.DeleteTransaction(ctx, added.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	mustBalance(t, l, a.ID, dec(50))
}

func TestAddTransactionMissingAccount(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.AddTransaction(context.Background(), core.Transaction{
		Description: "ghost", Amount: dec(10), Date: date(2024, time.January, 5),
		Type: core.TypeExpense, AccountID: "nope",
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddTransactionDanglingCategory(t *testing.T) {
	l, _ := newLedger(t)
	a := mustAccount(t, l, "u1", "checking", decimal.Zero)
	_, err := l.AddTransaction(context.Background(), core.Transaction{
		Description: "tagged", Amount: dec(10), Date: date(2024, time.January, 5),
		Type: core.TypeExpense, AccountID: a.ID, CategoryID: "missing",
	})
	if !errors.Is(err, core.ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
}

func TestAddTransactionUnreachableCategory(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", decimal.Zero)
	c, err := l.CreateCategory(ctx, core.Category{Name: "Private", Kind: core.KindCustom, OwnerID: "u2"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	_, err = l.AddTransaction(ctx, core.Transaction{
		Description: "tagged", Amount: dec(10), Date: date(2024, time.January, 5),
		Type: core.TypeExpense, AccountID: a.ID, CategoryID: c.ID,
	})
	if !errors.Is(err, core.ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
}

func TestUpdateTransactionSameAccount(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", dec(100))

	added, err := l.AddTransaction(ctx, core.Transaction{
		Description: "dinner", Amount: dec(30), Date: date(2024, time.January, 5),
		Type: core.TypeExpense, AccountID: a.ID,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	mustBalance(t, l, a.ID, dec(70))

	added.Amount = dec(45)
	if err := l.UpdateTransaction(ctx, added); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	mustBalance(t, l, a.ID, dec(55))
}

func TestUpdateTransactionCrossAccount(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", dec(100))
	b := mustAccount(t, l, "u1", "savings", dec(100))

	added, err := l.AddTransaction(ctx, core.Transaction{
		Description: "fee", Amount: dec(20), Date: date(2024, time.January, 5),
		Type: core.TypeExpense, AccountID: a.ID,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	mustBalance(t, l, a.ID, dec(80))

	added.AccountID = b.ID
	if err := l.UpdateTransaction(ctx, added); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	mustBalance(t, l, a.ID, dec(100))
	mustBalance(t, l, b.ID, dec(80))
}

func TestTransferMovesBothBalances(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", dec(100))
	b := mustAccount(t, l, "u1", "savings", decimal.Zero)

	debit, credit, err := l.Transfer(ctx, a.ID, b.ID, dec(60), date(2024, time.January, 10))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	mustBalance(t, l, a.ID, dec(40))
	mustBalance(t, l, b.ID, dec(60))

	if debit.Type != core.TypeExpense || credit.Type != core.TypeIncome {
		t.Fatalf("unexpected leg types: %s / %s", debit.Type, credit.Type)
	}
	if debit.CategoryID != "" || credit.CategoryID != "" {
		t.Fatalf("transfer legs must be uncategorized")
	}
}

func TestTransferValidation(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", dec(100))

	if _, _, err := l.Transfer(ctx, a.ID, a.ID, dec(10), date(2024, time.January, 10)); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("same-account transfer: expected ErrValidation, got %v", err)
	}
	if _, _, err := l.Transfer(ctx, a.ID, "nope", dec(10), date(2024, time.January, 10)); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("missing target: expected ErrValidation, got %v", err)
	}
	if _, _, err := l.Transfer(ctx, a.ID, a.ID, decimal.Zero, date(2024, time.January, 10)); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("zero amount: expected ErrValidation, got %v", err)
	}
}

// flakyStore wraps a store and fails inserts selected by failOn. WithTx
// re-wraps the inner transactional view so the failure survives inside
// scoped transactions.
type flakyStore struct {
	store.Store
	failOn func(core.Transaction) bool
}

func (f *flakyStore) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if f.failOn != nil && f.failOn(t) {
		return errors.New("injected insert failure")
	}
	return f.Store.InsertTransaction(ctx, t)
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(&flakyStore{Store: tx, failOn: f.failOn})
	})
}

func TestTransferAtomicOnSecondLegFailure(t *testing.T) {
	base := memory.New()
	l := New(base)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", dec(100))
	b := mustAccount(t, l, "u1", "savings", dec(50))

	// Fail the credit (income) leg, after the debit leg already persisted.
	flaky := New(&flakyStore{Store: base, failOn: func(tx core.Transaction) bool {
		return tx.Type == core.TypeIncome
	}})

	_, _, err := flaky.Transfer(ctx, a.ID, b.ID, dec(30), date(2024, time.January, 10))
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	// Neither leg nor either balance change may survive.
	mustBalance(t, l, a.ID, dec(100))
	mustBalance(t, l, b.ID, dec(50))
	txs, err := l.Transactions(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	for _, tx := range txs {
		if !tx.IsOpeningBalance() {
			t.Fatalf("unexpected surviving transaction: %+v", tx)
		}
	}
}

func TestConvertRecurringToRegular(t *testing.T) {
	l, st := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", decimal.Zero)

	template, err := l.AddTransaction(ctx, core.Transaction{
		Description: "rent", Amount: dec(900), Date: date(2024, time.January, 1),
		Type: core.TypeExpense, AccountID: a.ID,
		Recurring: true, RecurrenceInterval: core.IntervalMonthly,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := l.ConvertRecurringToRegular(ctx, template.ID); err != nil {
		t.Fatalf("ConvertRecurringToRegular: %v", err)
	}

	got, err := st.GetTransaction(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Recurring || got.RecurrenceInterval != "" || !got.LastMaterialized.IsZero() {
		t.Fatalf("recurrence rule not cleared: %+v", got)
	}
	// The balance effect is unchanged.
	mustBalance(t, l, a.ID, dec(-900))

	// Converting a non-template is a validation error.
	if err := l.ConvertRecurringToRegular(ctx, template.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	l, st := newLedger(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1", "checking", decimal.Zero)

	food, err := l.CreateCategory(ctx, core.Category{Name: "Food", Kind: core.KindCustom, OwnerID: "u1"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	misc, err := l.CreateCategory(ctx, core.Category{Name: "Misc", Kind: core.KindCustom, OwnerID: "u1"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	tagged, err := l.AddTransaction(ctx, core.Transaction{
		Description: "lunch", Amount: dec(12), Date: date(2024, time.January, 5),
		Type: core.TypeExpense, AccountID: a.ID, CategoryID: food.ID,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := st.InsertBudget(ctx, core.Budget{
		ID: "b1", UserID: "u1", Amount: dec(100),
		StartDate: date(2024, time.January, 1), EndDate: date(2024, time.January, 31),
		CategoryIDs: []string{food.ID, misc.ID},
	}); err != nil {
		t.Fatalf("InsertBudget: %v", err)
	}

	if err := l.DeleteCategory(ctx, "u1", food.ID, misc.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, err := st.GetTransaction(ctx, tagged.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.CategoryID != misc.ID {
		t.Fatalf("transaction not reassigned: %q", got.CategoryID)
	}
	b, err := st.GetBudget(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if len(b.CategoryIDs) != 1 || b.CategoryIDs[0] != misc.ID {
		t.Fatalf("budget links not pruned: %v", b.CategoryIDs)
	}
	if _, err := st.GetCategory(ctx, food.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("category still present: %v", err)
	}
}

func TestDeleteStandardCategoryRejected(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	std, err := l.CreateCategory(ctx, core.Category{Name: "Food", Kind: core.KindStandard})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if err := l.DeleteCategory(ctx, "u1", std.ID, ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSetCategoryBudget(t *testing.T) {
	l, st := newLedger(t)
	ctx := context.Background()
	c, err := l.CreateCategory(ctx, core.Category{Name: "Food", Kind: core.KindCustom, OwnerID: "u1"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	limit := dec(150)
	if err := l.SetCategoryBudget(ctx, "u1", c.ID, &limit); err != nil {
		t.Fatalf("SetCategoryBudget: %v", err)
	}
	got, err := st.GetCategory(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if got.Budget == nil || !got.Budget.Equal(limit) {
		t.Fatalf("budget not stored: %v", got.Budget)
	}

	bad := decimal.Zero
	if err := l.SetCategoryBudget(ctx, "u1", c.ID, &bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := l.SetCategoryBudget(ctx, "u2", c.ID, &limit); !errors.Is(err, core.ErrReference) {
		t.Fatalf("expected ErrReference for foreign user, got %v", err)
	}

	if err := l.SetCategoryBudget(ctx, "u1", c.ID, nil); err != nil {
		t.Fatalf("clearing budget: %v", err)
	}
	got, _ = st.GetCategory(ctx, c.ID)
	if got.Budget != nil {
		t.Fatalf("budget not cleared")
	}
}

func TestOverallBalance(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	mustAccount(t, l, "u1", "checking", dec(100))
	mustAccount(t, l, "u1", "savings", dec(250))
	mustAccount(t, l, "u2", "other", dec(999))

	total, err := l.OverallBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("OverallBalance: %v", err)
	}
	if !total.Equal(dec(350)) {
		t.Fatalf("overall balance = %s, want 350", total)
	}
}
