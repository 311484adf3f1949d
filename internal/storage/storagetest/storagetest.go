// Package storagetest holds behaviour checks shared by every LocalStore implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// Factory returns an empty store; the caller registers cleanup.
type Factory func(t *testing.T) storage.LocalStore

func Expense(id string, amount string, createdAt int64) core.Expense {
	return core.Expense{
		ID:          id,
		Amount:      decimal.RequireFromString(amount),
		Description: "gasto " + id,
		CreatedAt:   createdAt,
	}
}

// Run executes the LocalStore behaviour suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("upsert replaces by id", func(t *testing.T) { testUpsertReplaces(t, newStore(t)) })
	t.Run("list newest first", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("optional fields round trip", func(t *testing.T) { testFieldsRoundTrip(t, newStore(t)) })
	t.Run("delete and clear", func(t *testing.T) { testDeleteAndClear(t, newStore(t)) })
	t.Run("get missing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("watch emits on change", func(t *testing.T) { testWatch(t, newStore(t)) })
	t.Run("watch total recomputes", func(t *testing.T) { testWatchTotal(t, newStore(t)) })
}

func testUpsertReplaces(t *testing.T, s storage.LocalStore) {
	ctx := context.Background()
	e := Expense("a", "10", 1)
	mustUpsert(t, s, e)

	e.Amount = decimal.RequireFromString("12.5")
	e.Synced = true
	mustUpsert(t, s, e)

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(list))
	}
	if !list[0].Amount.Equal(e.Amount) || !list[0].Synced {
		t.Fatalf("expense not replaced: %+v", list[0])
	}
}

func testListOrder(t *testing.T, s storage.LocalStore) {
	mustUpsert(t, s, Expense("old", "1", 100))
	mustUpsert(t, s, Expense("new", "2", 300))
	mustUpsert(t, s, Expense("mid", "3", 200))

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{list[0].ID, list[1].ID, list[2].ID}
	want := []string{"new", "mid", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	sum, err := s.Sum(context.Background())
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("sum = %s, want 6", sum)
	}
}

func testFieldsRoundTrip(t *testing.T, s storage.LocalStore) {
	e := core.Expense{
		ID:               "full",
		Amount:           decimal.RequireFromString("99.99"),
		Description:      "cena",
		CreatedAt:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli(),
		LocalPhotoPath:   "/photos/1.jpg",
		RemotePhotoURL:   "https://x/fotos/1.jpg",
		OwnerID:          "u1",
		OwnerEmail:       "ana@x.com",
		OwnerDisplayName: "Ana",
		SharedWithEmail:  "bea@x.com",
		Synced:           true,
	}
	mustUpsert(t, s, e)

	got, err := s.Get(context.Background(), "full")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(e.Amount) {
		t.Fatalf("amount = %s, want %s", got.Amount, e.Amount)
	}
	got.Amount = e.Amount
	if got != e {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, e)
	}
}

func testDeleteAndClear(t *testing.T, s storage.LocalStore) {
	ctx := context.Background()
	mustUpsert(t, s, Expense("a", "1", 1))
	mustUpsert(t, s, Expense("b", "2", 2))

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete of missing id must not fail: %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 1 || list[0].ID != "b" {
		t.Fatalf("unexpected list after delete: %+v", list)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	list, _ = s.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty store, got %d", len(list))
	}
	sum, _ := s.Sum(ctx)
	if !sum.IsZero() {
		t.Fatalf("expected zero sum, got %s", sum)
	}
}

func testGetMissing(t *testing.T, s storage.LocalStore) {
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testWatch(t *testing.T, s storage.LocalStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Watch(ctx)
	if first := next(t, ch); len(first) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(first))
	}

	mustUpsert(t, s, Expense("a", "1", 1))
	if got := next(t, ch); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected snapshot after upsert: %+v", got)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := next(t, ch); len(got) != 0 {
		t.Fatalf("unexpected snapshot after delete: %+v", got)
	}
}

func testWatchTotal(t *testing.T, s storage.LocalStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.WatchTotal(ctx)
	if first := next(t, ch); !first.IsZero() {
		t.Fatalf("expected zero initial total, got %s", first)
	}

	mustUpsert(t, s, Expense("a", "1.10", 1))
	mustUpsert(t, s, Expense("b", "2.20", 2))
	// latest-wins delivery: drain until the final total shows up
	deadline := time.After(time.Second)
	for {
		select {
		case got := <-ch:
			if got.Equal(decimal.RequireFromString("3.30")) {
				return
			}
		case <-deadline:
			t.Fatal("total never reached 3.30")
		}
	}
}

func mustUpsert(t *testing.T, s storage.LocalStore, e core.Expense) {
	t.Helper()
	if err := s.Upsert(context.Background(), e); err != nil {
		t.Fatalf("upsert %s: %v", e.ID, err)
	}
}

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for emission")
	}
	var zero T
	return zero
}
