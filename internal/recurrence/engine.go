// Package recurrence materializes concrete transactions from recurring
// templates. Occurrence dates derive from the template start date, never from
// drifting last-plus-interval arithmetic, so the generated set is identical
// on every run for the same (template, today) pair.
package recurrence

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/store"
)

// maxOccurrencesPerRun bounds how many pending occurrences one run will
// generate for a single template. A backlog past it (a daily rule left
// unvisited for decades, or corrupted dates) halts with ErrRecurrence
// instead of flooding the ledger.
const maxOccurrencesPerRun = 10000

// Engine advances recurring templates to the current date.
type Engine struct {
	store  store.Store
	ledger *ledger.Ledger
}

// New returns an engine that persists instances through the given ledger.
func New(s store.Store, l *ledger.Ledger) *Engine {
	return &Engine{store: s, ledger: l}
}

// occurrence returns the template's n-th occurrence date (n = 0 is the start
// date itself). Monthly cadence anchors to the start day-of-month, clamped to
// the last valid day of shorter months.
func occurrence(t core.Transaction, n int) time.Time {
	start := core.DateOnly(t.Date)
	switch t.RecurrenceInterval {
	case core.IntervalDaily:
		return start.AddDate(0, 0, n)
	case core.IntervalWeekly:
		return start.AddDate(0, 0, 7*n)
	case core.IntervalMonthly:
		return core.AddMonthsClamped(start, n)
	}
	return time.Time{}
}

// firstPending returns the lowest occurrence index whose date falls after
// last. The analytic estimate is exact for fixed-length intervals and off by
// at most one for monthly clamping, so a short adjustment settles it; runs
// over a caught-up template stay O(1) regardless of the template's age.
func firstPending(t core.Transaction, last time.Time) int {
	start := core.DateOnly(t.Date)
	n := 1
	if last.After(start) {
		days := int(last.Sub(start) / (24 * time.Hour))
		switch t.RecurrenceInterval {
		case core.IntervalDaily:
			n = days + 1
		case core.IntervalWeekly:
			n = days/7 + 1
		case core.IntervalMonthly:
			n = (last.Year()-start.Year())*12 + int(last.Month()) - int(start.Month())
		}
		if n < 1 {
			n = 1
		}
	}
	for !occurrence(t, n).After(last) {
		n++
	}
	for n > 1 && occurrence(t, n-1).After(last) {
		n--
	}
	return n
}

// Materialize generates every unmaterialized occurrence of the template up to
// min(today, recurrence end date) and returns how many instances it created.
// Occurrences at or before the template's last-materialized date are skipped,
// so repeated invocations with the same today are no-ops.
func (e *Engine) Materialize(ctx context.Context, template core.Transaction, today time.Time) (int, error) {
	if !template.Recurring {
		return 0, core.Validationf("transaction %s is not a recurring template", template.ID)
	}
	if !template.RecurrenceInterval.Valid() {
		return 0, core.Recurrencef("template %s has unrecognized interval %q", template.ID, template.RecurrenceInterval)
	}

	horizon := core.DateOnly(today)
	if !template.RecurrenceEndDate.IsZero() && template.RecurrenceEndDate.Before(horizon) {
		horizon = core.DateOnly(template.RecurrenceEndDate)
	}

	// The template's own date is its first occurrence: its balance effect was
	// applied when the template was added. Generation starts one interval in.
	last := core.DateOnly(template.Date)
	if !template.LastMaterialized.IsZero() {
		last = template.LastMaterialized
	}

	first := firstPending(template, last)
	if !occurrence(template, first+maxOccurrencesPerRun).After(horizon) {
		return 0, core.Recurrencef("template %s has more than %d pending occurrences", template.ID, maxOccurrencesPerRun)
	}

	created := 0
	for n := first; ; n++ {
		occ := occurrence(template, n)
		if occ.After(horizon) {
			break
		}
		if _, err := e.ledger.MaterializeInstance(ctx, template, occ); err != nil {
			return created, err
		}
		last = occ
		created++
	}

	if created > 0 {
		slog.InfoContext(ctx, "Template materialized",
			"template_id", template.ID,
			"interval", string(template.RecurrenceInterval),
			"instances", created,
			"through", last.Format("2006-01-02"))
	}
	return created, nil
}

// Sweep materializes every active template up to today. A failing template is
// logged and skipped; it never aborts generation for unrelated templates.
func (e *Engine) Sweep(ctx context.Context, today time.Time) (int, error) {
	templates, err := e.store.ListTemplates(ctx)
	if err != nil {
		return 0, core.Persistencef("list templates", err)
	}

	total := 0
	for _, t := range templates {
		n, err := e.Materialize(ctx, t, today)
		total += n
		if err != nil {
			slog.ErrorContext(ctx, "Template materialization halted",
				"template_id", t.ID, "error", err)
			continue
		}
	}

	slog.DebugContext(ctx, "Recurrence sweep complete",
		"templates", len(templates), "instances_created", total)
	return total, nil
}
