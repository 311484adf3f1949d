package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentEngine, Output: &buf})

	logger.InfoContext(context.Background(), "Pulled rows", FieldCount, 3)
	logger.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentEngine || rec[FieldCount] != float64(3) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: FormatJSON, Component: ComponentApp, Output: &buf}).WithComponent(ComponentAuth)
	logger.Info("x")

	if strings.Count(buf.String(), `"component"`) != 1 || !strings.Contains(buf.String(), `"component":"auth"`) {
		t.Fatalf("unexpected output %s", buf.String())
	}
	if logger.Component() != ComponentAuth {
		t.Fatalf("Component() = %s", logger.Component())
	}
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: FormatConsole, Output: &buf}).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "k=") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestLogFieldsWithExpense(t *testing.T) {
	e := core.Expense{ID: "e1", Amount: decimal.RequireFromString("5"), OwnerEmail: "a@x.com"}
	f := NewFields().WithExpense(e).WithError(errors.New("boom")).WithError(nil)

	if f[FieldExpenseID] != "e1" || f[FieldAmount] != "5.00" || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields %v", f)
	}
	if _, ok := f[FieldSharedWith]; ok {
		t.Fatal("empty shared email should be omitted")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatal("ToSlice length mismatch")
	}
}

func TestStructuredLoggerStepFailure(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf}))
	sl.LogStepFailure(context.Background(), OpShare, "update_row", errors.New("403"), nil)

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"step":"update_row"`, `"operation":"share"`, `"error":"403"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
