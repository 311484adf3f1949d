package remote

import (
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Row is the transmissible part of an expense. Local bookkeeping (photo path, synced
// flag) has no column here.
type Row struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"monto"`
	Description     string          `json:"descripcion"`
	CreatedAt       int64           `json:"fecha"`
	PhotoURL        *string         `json:"foto_url"`
	SharedWithEmail *string         `json:"email_compartido"`
	OwnerID         *string         `json:"user_id"`
	OwnerEmail      *string         `json:"email_creador"`
	OwnerName       *string         `json:"nombre_creador"`
}

// Columns lists the table columns in Row field order.
var Columns = []string{
	"id", "monto", "descripcion", "fecha", "foto_url",
	"email_compartido", "user_id", "email_creador", "nombre_creador",
}

func RowFromExpense(e core.Expense) Row {
	return Row{
		ID:              e.ID,
		Amount:          e.Amount,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
		PhotoURL:        optional(e.RemotePhotoURL),
		SharedWithEmail: optional(e.SharedWithEmail),
		OwnerID:         optional(e.OwnerID),
		OwnerEmail:      optional(e.OwnerEmail),
		OwnerName:       optional(e.OwnerDisplayName),
	}
}

// Expense converts a remote row into a local record. Rows returned by the backend are
// authoritative, so the result is marked synced and never carries a local photo path.
func (r Row) Expense() core.Expense {
	return core.Expense{
		ID:               r.ID,
		Amount:           r.Amount,
		Description:      r.Description,
		CreatedAt:        r.CreatedAt,
		RemotePhotoURL:   value(r.PhotoURL),
		SharedWithEmail:  value(r.SharedWithEmail),
		OwnerID:          value(r.OwnerID),
		OwnerEmail:       value(r.OwnerEmail),
		OwnerDisplayName: value(r.OwnerName),
		Synced:           true,
	}
}

// VisibleTo mirrors core.Expense.VisibleTo for rows.
func (r Row) VisibleTo(email string) bool {
	return email != "" && (value(r.OwnerEmail) == email || value(r.SharedWithEmail) == email)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
