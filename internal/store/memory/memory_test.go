package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, s *Store, id, owner string) {
	t.Helper()
	if err := s.InsertAccount(context.Background(), core.Account{ID: id, OwnerID: owner, Name: id}); err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "a1", "u1")

	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertTransaction(ctx, core.Transaction{
			ID: "t1", AccountID: "a1", Amount: decimal.NewFromInt(10),
			Type: core.TypeIncome, Date: date(2024, time.January, 1), Description: "x",
		}); err != nil {
			return err
		}
		if err := tx.AddToBalance(ctx, "a1", decimal.NewFromInt(10)); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	if _, err := s.GetTransaction(ctx, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("transaction survived rollback: %v", err)
	}
	a, err := s.GetAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !a.Balance.IsZero() {
		t.Fatalf("balance survived rollback: %s", a.Balance)
	}
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "a1", "u1")

	err := s.WithTx(ctx, func(tx store.Store) error {
		return tx.AddToBalance(ctx, "a1", decimal.NewFromInt(25))
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	a, _ := s.GetAccount(ctx, "a1")
	if !a.Balance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("balance = %s, want 25", a.Balance)
	}
}

func TestWithTxNestedJoins(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "a1", "u1")

	// An inner WithTx joins the outer one; an outer failure rolls back both.
	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.WithTx(ctx, func(inner store.Store) error {
			return inner.AddToBalance(ctx, "a1", decimal.NewFromInt(5))
		}); err != nil {
			return err
		}
		return errors.New("outer failure")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	a, _ := s.GetAccount(ctx, "a1")
	if !a.Balance.IsZero() {
		t.Fatalf("nested write survived rollback: %s", a.Balance)
	}
}

func TestInsertTransactionChecksReferences(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "a1", "u1")

	tx := core.Transaction{
		ID: "t1", AccountID: "ghost", Amount: decimal.NewFromInt(1),
		Type: core.TypeExpense, Date: date(2024, time.January, 1), Description: "x",
	}
	if err := s.InsertTransaction(ctx, tx); err == nil {
		t.Fatalf("expected unknown-account error")
	}

	tx.AccountID = "a1"
	tx.CategoryID = "ghost"
	if err := s.InsertTransaction(ctx, tx); err == nil {
		t.Fatalf("expected unknown-category error")
	}
}

func TestListTransactionsByUserFiltersAndSorts(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "a1", "u1")
	seedAccount(t, s, "a2", "u2")

	mk := func(id, account string, day int) core.Transaction {
		return core.Transaction{
			ID: id, AccountID: account, Amount: decimal.NewFromInt(1),
			Type: core.TypeExpense, Date: date(2024, time.January, day), Description: id,
		}
	}
	for _, tx := range []core.Transaction{
		mk("b", "a1", 10), mk("a", "a1", 20), mk("z", "a2", 10), mk("c", "a1", 31),
	} {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction: %v", err)
		}
	}

	out, err := s.ListTransactionsByUser(ctx, "u1", date(2024, time.January, 1), date(2024, time.January, 25))
	if err != nil {
		t.Fatalf("ListTransactionsByUser: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestListTemplates(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "a1", "u1")

	plain := core.Transaction{
		ID: "p", AccountID: "a1", Amount: decimal.NewFromInt(1),
		Type: core.TypeExpense, Date: date(2024, time.January, 1), Description: "p",
	}
	template := core.Transaction{
		ID: "r", AccountID: "a1", Amount: decimal.NewFromInt(1),
		Type: core.TypeExpense, Date: date(2024, time.January, 1), Description: "r",
		Recurring: true, RecurrenceInterval: core.IntervalDaily,
	}
	if err := s.InsertTransaction(ctx, plain); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
	if err := s.InsertTransaction(ctx, template); err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}

	out, err := s.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(out) != 1 || out[0].ID != "r" {
		t.Fatalf("unexpected templates: %+v", out)
	}
}

func TestBudgetCategoryLinksAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.InsertCategory(ctx, core.Category{ID: "c1", Name: "Food", Kind: core.KindStandard}); err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}
	links := []string{"c1"}
	if err := s.InsertBudget(ctx, core.Budget{
		ID: "b1", UserID: "u1", Amount: decimal.NewFromInt(100),
		StartDate: date(2024, time.January, 1), EndDate: date(2024, time.January, 31),
		CategoryIDs: links,
	}); err != nil {
		t.Fatalf("InsertBudget: %v", err)
	}

	links[0] = "mutated"
	got, err := s.GetBudget(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got.CategoryIDs[0] != "c1" {
		t.Fatalf("stored links aliased caller slice: %v", got.CategoryIDs)
	}
}
