// Package report derives read-only datasets from the ledger's transaction
// set: per-category expense totals, monthly income/expense series, and
// budget-progress views. Nothing here mutates state.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/ledger"
)

// UncategorizedName is the display bucket for transactions with no category.
const UncategorizedName = "Uncategorized"

// CategoryExpense is one row of a category-expense report. The grouping key
// is the category id; the name is display-only, so two categories with the
// same name stay distinct.
type CategoryExpense struct {
	CategoryID string
	Name       string
	Amount     decimal.Decimal
}

// MonthlySeries maps "YYYY-MM" keys to summed amounts, income and expense
// separately. Expense values are absolute.
type MonthlySeries struct {
	Income  map[string]decimal.Decimal
	Expense map[string]decimal.Decimal
}

// CategoryBudgetRow is one category's spend against its own budget cap.
type CategoryBudgetRow struct {
	CategoryID string
	Name       string
	Budget     decimal.Decimal
	Spent      decimal.Decimal
	Ratio      decimal.Decimal
}

// Aggregator computes reports from the ledger's reads.
type Aggregator struct {
	ledger *ledger.Ledger
}

// New returns an aggregator over the given ledger.
func New(l *ledger.Ledger) *Aggregator {
	return &Aggregator{ledger: l}
}

// CategoryExpenses groups the user's expense transactions in [start, end] by
// category, summing absolute amounts. Uncategorized transactions fall into
// their own bucket. Rows come back ordered by category id.
func (a *Aggregator) CategoryExpenses(ctx context.Context, userID string, start, end time.Time) ([]CategoryExpense, error) {
	txs, err := a.ledger.Transactions(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != core.TypeExpense {
			continue
		}
		sums[t.CategoryID] = sums[t.CategoryID].Add(t.Amount)
	}
	if len(sums) == 0 {
		return nil, nil
	}

	names, err := a.categoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]CategoryExpense, 0, len(sums))
	for id, amount := range sums {
		name := names[id]
		if id == "" {
			name = UncategorizedName
		} else if name == "" {
			name = id // category no longer resolvable; keep the row honest
		}
		out = append(out, CategoryExpense{CategoryID: id, Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

// MonthlyIncomeAndExpenses groups the user's transactions in [start, end] by
// "YYYY-MM", summing income (signed positive) and expense (absolute value)
// separately. Opening-balance seed entries are balance-initialization
// artifacts, not activity, and are excluded.
func (a *Aggregator) MonthlyIncomeAndExpenses(ctx context.Context, userID string, start, end time.Time) (MonthlySeries, error) {
	series := MonthlySeries{
		Income:  make(map[string]decimal.Decimal),
		Expense: make(map[string]decimal.Decimal),
	}

	txs, err := a.ledger.Transactions(ctx, userID, start, end)
	if err != nil {
		return MonthlySeries{}, err
	}

	for _, t := range txs {
		if t.IsOpeningBalance() {
			continue
		}
		key := core.MonthKey(t.Date)
		switch t.Type {
		case core.TypeIncome:
			series.Income[key] = series.Income[key].Add(t.Amount)
		case core.TypeExpense:
			series.Expense[key] = series.Expense[key].Add(t.Amount)
		}
	}
	return series, nil
}

// MostSpentCategory returns the category with the highest expense total in
// the range. Ties break deterministically: the lowest category id wins. The
// second return is false when there are no expenses at all.
func (a *Aggregator) MostSpentCategory(ctx context.Context, userID string, start, end time.Time) (CategoryExpense, bool, error) {
	rows, err := a.CategoryExpenses(ctx, userID, start, end)
	if err != nil {
		return CategoryExpense{}, false, err
	}
	if len(rows) == 0 {
		return CategoryExpense{}, false, nil
	}

	// Rows are ordered by id, so the first strictly-greater amount wins and
	// equal amounts keep the earlier (lower) id.
	top := rows[0]
	for _, r := range rows[1:] {
		if r.Amount.GreaterThan(top.Amount) {
			top = r
		}
	}
	return top, true, nil
}

// CategoryBudgetProgress returns spent/budget for every category of the user
// that carries a positive single-category budget. Categories without a budget
// are omitted, not zero-filled. This view is independent of the multi-category
// Budget entity.
func (a *Aggregator) CategoryBudgetProgress(ctx context.Context, userID string, start, end time.Time) ([]CategoryBudgetRow, error) {
	cats, err := a.ledger.Categories(ctx, userID)
	if err != nil {
		return nil, err
	}

	budgeted := make(map[string]core.Category)
	for _, c := range cats {
		if c.Budget != nil && c.Budget.IsPositive() {
			budgeted[c.ID] = c
		}
	}
	if len(budgeted) == 0 {
		return nil, nil
	}

	txs, err := a.ledger.Transactions(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	spent := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != core.TypeExpense {
			continue
		}
		if _, ok := budgeted[t.CategoryID]; !ok {
			continue
		}
		spent[t.CategoryID] = spent[t.CategoryID].Add(t.Amount)
	}

	out := make([]CategoryBudgetRow, 0, len(budgeted))
	for id, c := range budgeted {
		s := spent[id]
		out = append(out, CategoryBudgetRow{
			CategoryID: id,
			Name:       c.Name,
			Budget:     *c.Budget,
			Spent:      s,
			Ratio:      s.Div(*c.Budget),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (a *Aggregator) categoryNames(ctx context.Context, userID string) (map[string]string, error) {
	cats, err := a.ledger.Categories(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}
