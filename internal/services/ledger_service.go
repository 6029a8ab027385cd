// Package services wires the engine components together for callers:
// ledger mutations publish events, and transaction reads advance due
// recurring templates first.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/ledger"
	"tally/internal/recurrence"
)

// LedgerService orchestrates ledger operations, recurrence advancement, and
// event publishing. The events client may be nil; publishing is best-effort
// and never fails the mutation that triggered it.
type LedgerService struct {
	ledger *ledger.Ledger
	engine *recurrence.Engine
	events *events.Client
}

// NewLedgerService builds the orchestration layer.
func NewLedgerService(l *ledger.Ledger, e *recurrence.Engine, ev *events.Client) *LedgerService {
	return &LedgerService{ledger: l, engine: e, events: ev}
}

// Ledger exposes the underlying ledger for read-side components.
func (s *LedgerService) Ledger() *ledger.Ledger {
	return s.ledger
}

// CreateTransaction persists a transaction and publishes a created event.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.ledger.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, events.NewTransactionMessage(events.KindTransactionCreated, created.ID, created.AccountID))
	return created, nil
}

// UpdateTransaction replaces a transaction owned by userID and reconciles
// balances.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID string, t core.Transaction) error {
	if err := s.requireOwner(ctx, userID, t.ID); err != nil {
		return err
	}
	return s.ledger.UpdateTransaction(ctx, t)
}

// DeleteTransaction reverses and removes a transaction owned by userID, then
// publishes a deleted event.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.requireOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.NewTransactionMessage(events.KindTransactionDeleted, id, ""))
	return nil
}

// ConvertRecurringToRegular strips the recurrence rule from a template owned
// by userID.
func (s *LedgerService) ConvertRecurringToRegular(ctx context.Context, userID, id string) error {
	if err := s.requireOwner(ctx, userID, id); err != nil {
		return err
	}
	return s.ledger.ConvertRecurringToRegular(ctx, id)
}

// requireOwner resolves the transaction's account owner against the acting
// user. A foreign transaction is indistinguishable from a missing one.
func (s *LedgerService) requireOwner(ctx context.Context, userID, id string) error {
	t, err := s.ledger.Transaction(ctx, id)
	if err != nil {
		return err
	}
	a, err := s.ledger.Account(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if a.OwnerID != userID {
		return core.Referencef("transaction %s does not exist", id)
	}
	return nil
}

// Transfer moves amount between accounts atomically and publishes one event
// for the pair.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, date time.Time) (core.Transaction, core.Transaction, error) {
	debit, credit, err := s.ledger.Transfer(ctx, fromID, toID, amount, date)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	s.publish(ctx, events.NewTransferMessage(debit.ID, credit.ID))
	return debit, credit, nil
}

// ListTransactions materializes due recurring templates, then returns the
// user's transactions in range. Reading is the second trigger for
// materialization besides the scheduled sweep.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	if s.engine != nil {
		if _, err := s.engine.Sweep(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Recurrence sweep before read failed", "error", err)
		}
	}
	return s.ledger.Transactions(ctx, userID, start, end)
}

func (s *LedgerService) publish(ctx context.Context, msg *events.LedgerMessage) {
	if err := s.events.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", msg.Kind, "error", err)
	}
}

// Close releases the events connection.
func (s *LedgerService) Close() error {
	return s.events.Close()
}
