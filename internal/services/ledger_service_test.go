package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/recurrence"
	"tally/internal/store/memory"
)

func newService(t *testing.T) (*LedgerService, *ledger.Ledger) {
	t.Helper()
	st := memory.New()
	l := ledger.New(st)
	return NewLedgerService(l, recurrence.New(st, l), nil), l
}

func TestListTransactionsMaterializesDueTemplates(t *testing.T) {
	svc, l := newService(t)
	ctx := context.Background()

	a, err := l.CreateAccount(ctx, "u1", "checking", decimal.Zero, time.Now().AddDate(0, 0, -3))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, core.Transaction{
		Description: "daily", Amount: decimal.NewFromInt(2),
		Date: core.DateOnly(time.Now().AddDate(0, 0, -3)),
		Type: core.TypeExpense, AccountID: a.ID,
		Recurring: true, RecurrenceInterval: core.IntervalDaily,
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	txs, err := svc.ListTransactions(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	// Template plus three materialized instances.
	if len(txs) != 4 {
		t.Fatalf("transactions = %d, want 4", len(txs))
	}

	// A second read generates nothing new.
	txs, err = svc.ListTransactions(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("transactions = %d after second read, want 4", len(txs))
	}
}

func TestMutationsWorkWithoutEvents(t *testing.T) {
	svc, l := newService(t)
	ctx := context.Background()

	a, err := l.CreateAccount(ctx, "u1", "checking", decimal.NewFromInt(100), time.Now())
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	b, err := l.CreateAccount(ctx, "u1", "savings", decimal.Zero, time.Now())
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		Description: "one-off", Amount: decimal.NewFromInt(10), Date: time.Now(),
		Type: core.TypeExpense, AccountID: a.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, _, err := svc.Transfer(ctx, a.ID, b.ID, decimal.NewFromInt(20), time.Now()); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, "u1", created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
