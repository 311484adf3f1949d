package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewExpenseAuthenticated(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Session{UserID: "u1", Email: "ana@example.com", DisplayName: "Ana"}
	e := NewExpense(decimal.NewFromInt(5), "lunch", "/tmp/p.jpg", s, "Ana", now)

	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if e.CreatedAt != now.UnixMilli() {
		t.Fatalf("unexpected createdAt %d", e.CreatedAt)
	}
	if e.OwnerID != "u1" || e.OwnerEmail != "ana@example.com" || e.OwnerDisplayName != "Ana" {
		t.Fatalf("owner fields not set: %+v", e)
	}
	if e.LocalPhotoPath != "/tmp/p.jpg" || e.Synced {
		t.Fatalf("unexpected local fields: %+v", e)
	}
}

func TestNewExpenseAnonymous(t *testing.T) {
	e := NewExpense(decimal.NewFromInt(1), "", "", Anonymous, GuestName, time.Now())
	if e.OwnerID != "" || e.OwnerEmail != "" {
		t.Fatalf("anonymous expense must have no owner: %+v", e)
	}
	other := NewExpense(decimal.NewFromInt(1), "", "", Anonymous, GuestName, time.Now())
	if e.ID == other.ID {
		t.Fatal("ids must be unique")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{ID: "x", Amount: decimal.NewFromInt(10), Description: "ok"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e   Expense
		err error
	}{
		{Expense{Amount: decimal.NewFromInt(1)}, ErrMissingID},
		{Expense{ID: "x", Amount: decimal.NewFromInt(-1)}, ErrInvalidAmount},
		{Expense{ID: "x", Amount: decimal.NewFromInt(100_000_001)}, ErrAmountTooLarge},
		{Expense{ID: "x", Description: strings.Repeat("a", 501)}, ErrDescriptionTooLong},
		{Expense{ID: "x", SharedWithEmail: "not-an-email"}, ErrInvalidEmail},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); err != tc.err {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	e := Expense{OwnerEmail: "a@x.com", SharedWithEmail: "b@x.com"}
	cases := map[string]bool{
		"a@x.com": true,
		"b@x.com": true,
		"c@x.com": false,
		"":        false,
	}
	for email, want := range cases {
		if got := e.VisibleTo(email); got != want {
			t.Errorf("VisibleTo(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestPhotoObjectName(t *testing.T) {
	cases := []struct{ url, want string }{
		{"https://h/storage/v1/object/public/fotos_gastos/abc.jpg", "abc.jpg"},
		{"abc.jpg", "abc.jpg"},
		{"", ""},
	}
	for _, tc := range cases {
		e := Expense{RemotePhotoURL: tc.url}
		if got := e.PhotoObjectName(); got != tc.want {
			t.Errorf("PhotoObjectName(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestNewPhotoObjectName(t *testing.T) {
	n := NewPhotoObjectName()
	if !strings.HasSuffix(n, PhotoExtension) || len(n) <= len(PhotoExtension) {
		t.Fatalf("unexpected object name %q", n)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"friend@x.com", "a.b@c.org"} {
		if err := ValidateEmail(ok); err != nil {
			t.Errorf("%q expected ok, got %v", ok, err)
		}
	}
	for _, bad := range []string{"", "nope", "Name <a@b.com>"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("%q expected error", bad)
		}
	}
}
