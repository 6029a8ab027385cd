package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType tags a transaction as money in or money out.
type TxType string

const (
	TypeIncome  TxType = "income"
	TypeExpense TxType = "expense"
)

// Valid reports whether the type is one of the known variants.
func (t TxType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// RecurrenceInterval is the cadence of a template transaction.
type RecurrenceInterval string

const (
	IntervalDaily   RecurrenceInterval = "daily"
	IntervalWeekly  RecurrenceInterval = "weekly"
	IntervalMonthly RecurrenceInterval = "monthly"
)

// Valid reports whether the interval is one of the known variants.
func (i RecurrenceInterval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// OpeningBalanceDescription is the fixed description of the seed transaction
// recorded when an account is created with a non-zero opening balance. Report
// aggregation recognizes it and excludes the entry from activity series.
const OpeningBalanceDescription = "Initial balance"

// Transaction is a single cash movement. Amount is stored as a positive
// magnitude; the sign is derived from Type. A transaction with Recurring set
// is a template that defines a recurrence rule; a transaction with
// SourceRecurringID set is a materialized instance of that template.
type Transaction struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Type        TxType
	AccountID   string
	CategoryID  string // empty means uncategorized

	Recurring          bool
	RecurrenceInterval RecurrenceInterval // set only on templates
	RecurrenceEndDate  time.Time          // zero means open-ended
	SourceRecurringID  string             // set only on materialized instances
	LastMaterialized   time.Time          // generation state, templates only
}

// SignedAmount is the balance delta the transaction applies to its account:
// positive for income, negative for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsOpeningBalance reports whether the transaction is a balance-initialization
// artifact rather than activity.
func (t Transaction) IsOpeningBalance() bool {
	return t.CategoryID == "" && t.Description == OpeningBalanceDescription
}

// Validate checks the transaction's own invariants. Reference resolution
// (account, category) is the ledger's job.
func (t Transaction) Validate() error {
	if t.AccountID == "" {
		return Validationf("transaction has no account")
	}
	if !t.Type.Valid() {
		return Validationf("unknown transaction type %q", t.Type)
	}
	if !t.Amount.IsPositive() {
		return Validationf("transaction amount must be positive")
	}
	if t.Date.IsZero() {
		return Validationf("transaction date is zero")
	}
	if t.Recurring {
		if !t.RecurrenceInterval.Valid() {
			return Validationf("template has unknown interval %q", t.RecurrenceInterval)
		}
		if !t.RecurrenceEndDate.IsZero() && t.RecurrenceEndDate.Before(t.Date) {
			return Validationf("recurrence end date precedes start date")
		}
	}
	if !t.Recurring && t.RecurrenceInterval != "" {
		return Validationf("interval set on a non-recurring transaction")
	}
	return nil
}
