// Package memory provides an in-process store adapter. It backs the default
// backend and the engine's tests; transactional semantics are implemented
// with snapshot rollback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

type state struct {
	accounts     map[string]core.Account
	categories   map[string]core.Category
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget
}

func newState() *state {
	return &state{
		accounts:     make(map[string]core.Account),
		categories:   make(map[string]core.Category),
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	for k, v := range st.budgets {
		v.CategoryIDs = append([]string(nil), v.CategoryIDs...)
		c.budgets[k] = v
	}
	return c
}

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState()}
}

// lock acquires the store mutex unless this view is already inside a
// transaction (which holds the lock for its whole extent).
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx implements store.Store. The whole state is snapshotted up front and
// restored if fn fails, giving all-or-nothing semantics.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snap
		return err
	}
	return nil
}

// Accounts

func (s *Store) InsertAccount(_ context.Context, a core.Account) error {
	defer s.lock()()
	if _, ok := s.data.accounts[a.ID]; ok {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	s.data.accounts[a.ID] = a
	return nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	defer s.lock()()
	a, ok := s.data.accounts[id]
	if !ok {
		return core.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccountsByOwner(_ context.Context, ownerID string) ([]core.Account, error) {
	defer s.lock()()
	var out []core.Account
	for _, a := range s.data.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AddToBalance(_ context.Context, accountID string, delta decimal.Decimal) error {
	defer s.lock()()
	a, ok := s.data.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	s.data.accounts[accountID] = a
	return nil
}

// Categories

func (s *Store) InsertCategory(_ context.Context, c core.Category) error {
	defer s.lock()()
	if _, ok := s.data.categories[c.ID]; ok {
		return fmt.Errorf("category %s already exists", c.ID)
	}
	s.data.categories[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	defer s.lock()()
	c, ok := s.data.categories[id]
	if !ok {
		return core.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategoriesForUser(_ context.Context, userID string) ([]core.Category, error) {
	defer s.lock()()
	var out []core.Category
	for _, c := range s.data.categories {
		if c.ReachableBy(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	defer s.lock()()
	if _, ok := s.data.categories[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.data.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.categories, id)
	return nil
}

func (s *Store) ReassignTransactionCategory(_ context.Context, from, to string) error {
	defer s.lock()()
	for id, t := range s.data.transactions {
		if t.CategoryID == from {
			t.CategoryID = to
			s.data.transactions[id] = t
		}
	}
	return nil
}

func (s *Store) UnlinkCategoryFromBudgets(_ context.Context, categoryID string) error {
	defer s.lock()()
	for id, b := range s.data.budgets {
		kept := b.CategoryIDs[:0:0]
		for _, cid := range b.CategoryIDs {
			if cid != categoryID {
				kept = append(kept, cid)
			}
		}
		b.CategoryIDs = kept
		s.data.budgets[id] = b
	}
	return nil
}

// Transactions

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	defer s.lock()()
	if _, ok := s.data.transactions[t.ID]; ok {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	if _, ok := s.data.accounts[t.AccountID]; !ok {
		return fmt.Errorf("transaction references unknown account %s", t.AccountID)
	}
	if t.CategoryID != "" {
		if _, ok := s.data.categories[t.CategoryID]; !ok {
			return fmt.Errorf("transaction references unknown category %s", t.CategoryID)
		}
	}
	s.data.transactions[t.ID] = t
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	defer s.lock()()
	if _, ok := s.data.transactions[t.ID]; !ok {
		return store.ErrNotFound
	}
	s.data.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.transactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.transactions, id)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	defer s.lock()()
	t, ok := s.data.transactions[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTransactionsByAccount(_ context.Context, accountID string) ([]core.Transaction, error) {
	defer s.lock()()
	var out []core.Transaction
	for _, t := range s.data.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListTransactionsByUser(_ context.Context, userID string, start, end time.Time) ([]core.Transaction, error) {
	defer s.lock()()
	var out []core.Transaction
	for _, t := range s.data.transactions {
		a, ok := s.data.accounts[t.AccountID]
		if !ok || a.OwnerID != userID {
			continue
		}
		d := core.DateOnly(t.Date)
		if !start.IsZero() && d.Before(core.DateOnly(start)) {
			continue
		}
		if !end.IsZero() && d.After(core.DateOnly(end)) {
			continue
		}
		out = append(out, t)
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]core.Transaction, error) {
	defer s.lock()()
	var out []core.Transaction
	for _, t := range s.data.transactions {
		if t.Recurring {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) SetLastMaterialized(_ context.Context, templateID string, at time.Time) error {
	defer s.lock()()
	t, ok := s.data.transactions[templateID]
	if !ok {
		return store.ErrNotFound
	}
	t.LastMaterialized = core.DateOnly(at)
	s.data.transactions[templateID] = t
	return nil
}

// Budgets

func (s *Store) InsertBudget(_ context.Context, b core.Budget) error {
	defer s.lock()()
	if _, ok := s.data.budgets[b.ID]; ok {
		return fmt.Errorf("budget %s already exists", b.ID)
	}
	for _, cid := range b.CategoryIDs {
		if _, ok := s.data.categories[cid]; !ok {
			return fmt.Errorf("budget references unknown category %s", cid)
		}
	}
	b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	s.data.budgets[b.ID] = b
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	defer s.lock()()
	if _, ok := s.data.budgets[b.ID]; !ok {
		return store.ErrNotFound
	}
	for _, cid := range b.CategoryIDs {
		if _, ok := s.data.categories[cid]; !ok {
			return fmt.Errorf("budget references unknown category %s", cid)
		}
	}
	b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	s.data.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.data.budgets[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.budgets, id)
	return nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	defer s.lock()()
	b, ok := s.data.budgets[id]
	if !ok {
		return core.Budget{}, store.ErrNotFound
	}
	b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	return b, nil
}

func (s *Store) ListBudgetsByUser(_ context.Context, userID string) ([]core.Budget, error) {
	defer s.lock()()
	var out []core.Budget
	for _, b := range s.data.budgets {
		if b.UserID == userID {
			b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortTransactions(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}
