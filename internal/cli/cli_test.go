package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/services"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOCAL_BACKEND", "sqlite")
	t.Setenv("REMOTE_BACKEND", "memory")
	for _, key := range []string{
		"SQLITE_DB_PATH", "SESSION_FILE", "PHOTO_DIR",
		"GOOGLE_ID_TOKEN", "GOOGLE_OAUTH_CLIENT_FILE", "GOOGLE_OAUTH_CLIENT_JSON",
		"AMQP_URL", "HTTP_ADDR",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "add", "list", "share", "delete", "sync", "login", "logout", "events"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("command %q not found: %v", name, err)
		}
	}
	if f := cmd.PersistentFlags().Lookup("format"); f == nil || f.DefValue != "text" {
		t.Errorf("format flag = %+v", f)
	}
}

func TestInvalidFormat(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "--format", "yaml", "list")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("err = %v, want invalid format", err)
	}
}

func TestAddAndList(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "add", "12,50", "Cena")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Cena") || !strings.Contains(out, "pending") {
		t.Errorf("add output = %q", out)
	}

	if _, err := run(t, "add", "7.5", "Taxi"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err = run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Cena", "Taxi", "Total: 20.00 (2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestAddRejectsInvalidAmount(t *testing.T) {
	setupEnv(t)
	for _, amount := range []string{"abc", "1.2.3", "12€"} {
		if _, err := run(t, "add", amount, "x"); err == nil {
			t.Errorf("add %q: expected error", amount)
		}
	}
}

func TestListJSON(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "add", "3", "Café"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := run(t, "--format", "json", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var body struct {
		Records []struct {
			ID          string `json:"id"`
			Description string `json:"description"`
			Synced      bool   `json:"synced"`
		} `json:"records"`
		Total string `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(body.Records) != 1 || body.Records[0].Description != "Café" || body.Records[0].Synced {
		t.Fatalf("records = %+v", body.Records)
	}
	if body.Total != "3.00" {
		t.Errorf("total = %q", body.Total)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "add", "5", "Pan"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := run(t, "--format", "json", "list")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Records []struct{ ID string } `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil || len(body.Records) != 1 {
		t.Fatalf("list = %s (%v)", out, err)
	}

	if _, err := run(t, "delete", body.Records[0].ID[:8]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, err = run(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Pan") {
		t.Errorf("expense still listed after delete:\n%s", out)
	}

	if _, err := run(t, "delete", "nope"); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("delete unknown: err = %v", err)
	}
}

func TestShareRequiresValidEmail(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "add", "5", "Pan"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, _ := run(t, "--format", "json", "list")
	var body struct {
		Records []struct{ ID string } `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil || len(body.Records) != 1 {
		t.Fatalf("list = %s (%v)", out, err)
	}
	if _, err := run(t, "share", body.Records[0].ID, "not-an-email"); err == nil {
		t.Fatal("expected error for invalid email")
	}
}

func TestSyncRequiresSession(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "sync"); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("err = %v", err)
	}
}

func TestEventsRequiresAMQP(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "events"); err == nil || !strings.Contains(err.Error(), "AMQP_URL") {
		t.Fatalf("err = %v", err)
	}
}

func TestFindExpense(t *testing.T) {
	state := services.State{Records: []core.Expense{
		{ID: "abc123"},
		{ID: "abd456"},
		{ID: "xyz789"},
	}}
	tests := []struct {
		id      string
		want    string
		wantErr error
	}{
		{id: "abc123", want: "abc123"},
		{id: "xy", want: "xyz789"},
		{id: "ab", wantErr: ErrAmbiguousExpense},
		{id: "zzz", wantErr: ErrExpenseNotFound},
		{id: " ", wantErr: ErrExpenseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := findExpense(state, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got.ID != tt.want {
				t.Fatalf("findExpense(%q) = %q, %v", tt.id, got.ID, err)
			}
		})
	}
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	text := eventPrinter(&buf, "text")
	if err := text(amqp.ExpenseEvent{Type: amqp.EventShared, ExpenseID: "abcdef123456", OwnerEmail: "ana@x.com", SharedWithEmail: "luis@x.com", Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	if err := text(amqp.ExpenseEvent{Type: amqp.EventPulled, OwnerEmail: "ana@x.com", Count: 4, Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"expense.shared", "abcdef12", "luis@x.com", "4 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := eventPrinter(&buf, "json")(amqp.ExpenseEvent{Type: amqp.EventDeleted, ExpenseID: "e1", Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	ev, err := amqp.ExpenseEventFromJSON(buf.Bytes())
	if err != nil || ev.Type != amqp.EventDeleted || ev.ExpenseID != "e1" {
		t.Errorf("json event = %+v, %v", ev, err)
	}
}
