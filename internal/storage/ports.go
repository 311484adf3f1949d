package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// ErrNotFound is returned by Get when no expense has the requested id.
var ErrNotFound = errors.New("expense not found")

// LocalStore is the durable table of expenses the UI observes. Writes replace whole
// records by id; there is no partial update.
type LocalStore interface {
	Upsert(ctx context.Context, e core.Expense) error
	Get(ctx context.Context, id string) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	// List returns every expense, newest first.
	List(ctx context.Context) ([]core.Expense, error)
	Sum(ctx context.Context) (decimal.Decimal, error)

	// Watch emits the full ordered list now and after every change until ctx is done.
	Watch(ctx context.Context) <-chan []core.Expense
	// WatchTotal emits the sum of all amounts now and after every change.
	WatchTotal(ctx context.Context) <-chan decimal.Decimal

	Close() error
}
