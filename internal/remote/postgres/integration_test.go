//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/remote"
)

// Run with: GASTOS_TEST_DATABASE_URL=postgres://... go test -tags=integration ./internal/remote/postgres

func TestIntegration_RowStoreFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("GASTOS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GASTOS_TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	owner := "owner-" + uuid.NewString()[:8] + "@x.com"
	friend := "friend-" + uuid.NewString()[:8] + "@x.com"
	exp := core.NewExpense(decimal.RequireFromString("12.34"), "integration", "",
		core.Session{UserID: "u1", Email: owner, DisplayName: "Owner"}, "Owner", time.Now())

	if err := store.Insert(ctx, remote.RowFromExpense(exp)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	t.Cleanup(func() { store.Delete(context.Background(), exp.ID) })

	rows, err := store.SelectVisible(ctx, friend)
	if err != nil {
		t.Fatalf("SelectVisible friend: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("friend sees %d rows before share", len(rows))
	}

	if err := store.UpdateSharedWith(ctx, exp.ID, friend); err != nil {
		t.Fatalf("UpdateSharedWith: %v", err)
	}
	rows, err = store.SelectVisible(ctx, friend)
	if err != nil {
		t.Fatalf("SelectVisible friend: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != exp.ID || !rows[0].Amount.Equal(exp.Amount) {
		t.Fatalf("friend rows = %+v", rows)
	}

	if err := store.Delete(ctx, exp.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rows, err = store.SelectVisible(ctx, owner)
	if err != nil {
		t.Fatalf("SelectVisible owner: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("owner sees %d rows after delete", len(rows))
	}
}
