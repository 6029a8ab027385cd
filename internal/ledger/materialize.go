package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/store"
)

// MaterializeInstance records one concrete occurrence of a recurring template
// dated on. The instance insert, its balance delta, and the template's
// generation-state advance commit in a single scoped transaction, which is
// what makes materialization idempotent: a replayed run sees the advanced
// last-materialized date and generates nothing.
func (l *Ledger) MaterializeInstance(ctx context.Context, template core.Transaction, on time.Time) (core.Transaction, error) {
	instance := core.Transaction{
		ID:                uuid.NewString(),
		Description:       template.Description,
		Amount:            template.Amount,
		Date:              core.DateOnly(on),
		Type:              template.Type,
		AccountID:         template.AccountID,
		CategoryID:        template.CategoryID,
		SourceRecurringID: template.ID,
	}
	if err := instance.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err := l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.InsertTransaction(ctx, instance); err != nil {
			return core.Persistencef("insert instance", err)
		}
		if err := tx.AddToBalance(ctx, instance.AccountID, instance.SignedAmount()); err != nil {
			return core.Persistencef("apply instance delta", err)
		}
		if err := tx.SetLastMaterialized(ctx, template.ID, instance.Date); err != nil {
			return core.Persistencef("advance template state", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return instance, nil
}
