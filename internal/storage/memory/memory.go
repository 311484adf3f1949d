// Package memory is an in-process LocalStore used by tests and by the memory backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/storage"
	"gastos/internal/stream"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.Expense

	list  *stream.Hub[[]core.Expense]
	total *stream.Hub[decimal.Decimal]

	// FailWrites makes every mutating call return the error, for tests.
	FailWrites error
}

var _ storage.LocalStore = (*Store)(nil)

func New(seed ...core.Expense) *Store {
	s := &Store{
		items: make(map[string]core.Expense),
		list:  stream.NewHub[[]core.Expense](),
		total: stream.NewHub[decimal.Decimal](),
	}
	for _, e := range seed {
		s.items[e.ID] = e
	}
	s.publishLocked()
	return s
}

func (s *Store) Upsert(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.items[e.ID] = e
	s.publishLocked()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	delete(s.items, id)
	s.publishLocked()
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.items = make(map[string]core.Expense)
	s.publishLocked()
	return nil
}

func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(), nil
}

func (s *Store) Sum(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.SumAmounts(s.sortedLocked()), nil
}

func (s *Store) Watch(ctx context.Context) <-chan []core.Expense {
	return s.list.Subscribe(ctx)
}

func (s *Store) WatchTotal(ctx context.Context) <-chan decimal.Decimal {
	return s.total.Subscribe(ctx)
}

func (s *Store) Close() error {
	s.list.Close()
	s.total.Close()
	return nil
}

func (s *Store) publishLocked() {
	items := s.sortedLocked()
	s.list.Publish(items)
	s.total.Publish(core.SumAmounts(items))
}

// sortedLocked orders by createdAt descending, ties broken by id like the SQLite store.
func (s *Store) sortedLocked() []core.Expense {
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}
