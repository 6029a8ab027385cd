package recurrence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/store/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newEngine(t *testing.T) (*Engine, *ledger.Ledger, *memory.Store) {
	t.Helper()
	st := memory.New()
	l := ledger.New(st)
	return New(st, l), l, st
}

func mustAccount(t *testing.T, l *ledger.Ledger, owner string) core.Account {
	t.Helper()
	a, err := l.CreateAccount(context.Background(), owner, "checking", decimal.Zero, date(2024, time.January, 1))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func mustTemplate(t *testing.T, l *ledger.Ledger, accountID string, start time.Time, interval core.RecurrenceInterval, end time.Time) core.Transaction {
	t.Helper()
	template, err := l.AddTransaction(context.Background(), core.Transaction{
		Description: "subscription", Amount: dec(10), Date: start,
		Type: core.TypeExpense, AccountID: accountID,
		Recurring: true, RecurrenceInterval: interval, RecurrenceEndDate: end,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return template
}

func instanceCount(t *testing.T, l *ledger.Ledger, userID, templateID string) int {
	t.Helper()
	txs, err := l.Transactions(context.Background(), userID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	n := 0
	for _, tx := range txs {
		if tx.SourceRecurringID == templateID {
			n++
		}
	}
	return n
}

func TestMaterializeDaily(t *testing.T) {
	e, l, _ := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalDaily, time.Time{})

	created, err := e.Materialize(ctx, template, date(2024, time.January, 5))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	// Jan 2 through Jan 5: the template's own date is occurrence zero.
	if created != 4 {
		t.Fatalf("created = %d, want 4", created)
	}
	if got := instanceCount(t, l, "u1", template.ID); got != 4 {
		t.Fatalf("instances = %d, want 4", got)
	}
}

func TestMaterializeIsIdempotent(t *testing.T) {
	e, l, st := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalWeekly, time.Time{})

	today := date(2024, time.February, 1)
	if _, err := e.Materialize(ctx, template, today); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := instanceCount(t, l, "u1", template.ID)

	// Reload the template so the advanced generation state is visible.
	reloaded, err := st.GetTransaction(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	created, err := e.Materialize(ctx, reloaded, today)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if created != 0 {
		t.Fatalf("second run created %d instances, want 0", created)
	}
	if got := instanceCount(t, l, "u1", template.ID); got != first {
		t.Fatalf("instances = %d, want %d", got, first)
	}
}

func TestMaterializeMonthlyClampsAndRecovers(t *testing.T) {
	e, l, _ := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(2024, time.January, 31), core.IntervalMonthly, time.Time{})

	if _, err := e.Materialize(ctx, template, date(2024, time.April, 30)); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	txs, err := l.Transactions(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	var got []string
	for _, tx := range txs {
		if tx.SourceRecurringID == template.ID {
			got = append(got, tx.Date.Format("2006-01-02"))
		}
	}
	// April clamps 31 to 30, and Apr 30 falls on the horizon itself.
	want := map[string]bool{"2024-02-29": true, "2024-03-31": true, "2024-04-30": true}
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want feb 29, mar 31, apr 30", got)
	}
	for _, d := range got {
		if !want[d] {
			t.Fatalf("unexpected occurrence date %s", d)
		}
	}
}

func TestMaterializeHonorsEndDate(t *testing.T) {
	e, l, _ := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalDaily, date(2024, time.January, 3))

	created, err := e.Materialize(ctx, template, date(2024, time.June, 1))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2 (jan 2 and jan 3)", created)
	}
}

func TestMaterializeAppliesBalance(t *testing.T) {
	e, l, st := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalDaily, time.Time{})

	if _, err := e.Materialize(ctx, template, date(2024, time.January, 4)); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	got, err := st.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	// Template (-10) plus three instances (-30).
	if !got.Balance.Equal(dec(-40)) {
		t.Fatalf("balance = %s, want -40", got.Balance)
	}
}

func TestMaterializeRejectsNonTemplate(t *testing.T) {
	e, l, _ := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	plain, err := l.AddTransaction(ctx, core.Transaction{
		Description: "one-off", Amount: dec(5), Date: date(2024, time.January, 2),
		Type: core.TypeExpense, AccountID: a.ID,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if _, err := e.Materialize(ctx, plain, date(2024, time.February, 1)); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMaterializeOccurrenceCap(t *testing.T) {
	e, l, _ := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(1990, time.January, 1), core.IntervalDaily, time.Time{})

	// A never-materialized daily template decades behind today has a
	// backlog past the per-run cap; the run halts before inserting.
	_, err := e.Materialize(ctx, template, date(2024, time.January, 1))
	if !errors.Is(err, core.ErrRecurrence) {
		t.Fatalf("expected ErrRecurrence, got %v", err)
	}
	if got := instanceCount(t, l, "u1", template.ID); got != 0 {
		t.Fatalf("cap run created %d instances, want 0", got)
	}
}

func TestMaterializeCaughtUpOldTemplate(t *testing.T) {
	e, l, st := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(1996, time.January, 1), core.IntervalDaily, time.Time{})

	// Only pending occurrences count against the cap: a decades-old daily
	// template that is one day behind generates exactly that one day.
	today := date(2024, time.June, 1)
	if err := st.SetLastMaterialized(ctx, template.ID, today.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("SetLastMaterialized: %v", err)
	}
	reloaded, err := st.GetTransaction(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	created, err := e.Materialize(ctx, reloaded, today)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if got := instanceCount(t, l, "u1", template.ID); got != 1 {
		t.Fatalf("instances = %d, want 1", got)
	}
}

func TestSweepIsolatesFailingTemplates(t *testing.T) {
	e, l, st := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")

	healthy := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalWeekly, time.Time{})

	// Corrupt a second template's interval behind the ledger's back.
	broken := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalDaily, time.Time{})
	raw, err := st.GetTransaction(ctx, broken.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	raw.RecurrenceInterval = "fortnightly"
	if err := st.UpdateTransaction(ctx, raw); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	total, err := e.Sweep(ctx, date(2024, time.January, 15))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if total != 2 {
		t.Fatalf("sweep created %d instances, want 2 from the healthy template", total)
	}
	if got := instanceCount(t, l, "u1", healthy.ID); got != 2 {
		t.Fatalf("healthy instances = %d, want 2", got)
	}
	if got := instanceCount(t, l, "u1", broken.ID); got != 0 {
		t.Fatalf("broken template produced %d instances, want 0", got)
	}
}

func TestSweepIdempotentAcrossRuns(t *testing.T) {
	e, l, _ := newEngine(t)
	ctx := context.Background()
	a := mustAccount(t, l, "u1")
	template := mustTemplate(t, l, a.ID, date(2024, time.January, 1), core.IntervalMonthly, time.Time{})

	today := date(2024, time.June, 15)
	first, err := e.Sweep(ctx, today)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first != 5 {
		t.Fatalf("first sweep created %d, want 5 (feb through jun)", first)
	}
	second, err := e.Sweep(ctx, today)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second != 0 {
		t.Fatalf("second sweep created %d, want 0", second)
	}
	if got := instanceCount(t, l, "u1", template.ID); got != 5 {
		t.Fatalf("instances = %d, want 5", got)
	}
}
