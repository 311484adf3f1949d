package remote

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

func TestRowFromExpenseDropsLocalFields(t *testing.T) {
	e := core.Expense{
		ID:             "id1",
		Amount:         decimal.RequireFromString("7.5"),
		Description:    "taxi",
		CreatedAt:      42,
		LocalPhotoPath: "/sdcard/p.jpg",
		OwnerEmail:     "a@x.com",
		Synced:         false,
	}
	body, err := json.Marshal(RowFromExpense(e))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(body)
	for _, forbidden := range []string{"sdcard", "synced", "sincronizado", "ruta"} {
		if strings.Contains(s, forbidden) {
			t.Fatalf("payload leaks local field %q: %s", forbidden, s)
		}
	}
	for _, col := range Columns {
		if !strings.Contains(s, `"`+col+`"`) {
			t.Fatalf("payload missing column %q: %s", col, s)
		}
	}
}

func TestRowExpenseIsSyncedWithoutLocalPath(t *testing.T) {
	raw := `{"id":"r1","monto":12.25,"descripcion":"cafe","fecha":99,
		"foto_url":"https://h/x.jpg","email_compartido":null,"user_id":"u",
		"email_creador":"a@x.com","nombre_creador":"Ana","extra_column":true}`
	var row Row
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	e := row.Expense()
	if !e.Synced || e.LocalPhotoPath != "" {
		t.Fatalf("expected synced with no local path: %+v", e)
	}
	if !e.Amount.Equal(decimal.RequireFromString("12.25")) || e.RemotePhotoURL != "https://h/x.jpg" {
		t.Fatalf("unexpected conversion: %+v", e)
	}
	if e.SharedWithEmail != "" || e.OwnerDisplayName != "Ana" {
		t.Fatalf("unexpected optional fields: %+v", e)
	}
}
