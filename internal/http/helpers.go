package http

import (
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/services"
)

// sanitizeInput removes control characters other than tab and newlines and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type expenseView struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	CreatedAt       int64  `json:"created_at"`
	Date            string `json:"date"`
	RemotePhotoURL  string `json:"remote_photo_url,omitempty"`
	OwnerEmail      string `json:"owner_email,omitempty"`
	OwnerName       string `json:"owner_name"`
	SharedWithEmail string `json:"shared_with_email,omitempty"`
	Synced          bool   `json:"synced"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:              e.ID,
		Amount:          core.FormatAmount(e.Amount),
		Description:     e.Description,
		CreatedAt:       e.CreatedAt,
		Date:            e.Time().Format(time.RFC3339),
		RemotePhotoURL:  e.RemotePhotoURL,
		OwnerEmail:      e.OwnerEmail,
		OwnerName:       e.OwnerName(),
		SharedWithEmail: e.SharedWithEmail,
		Synced:          e.Synced,
	}
}

type stateView struct {
	Records      []expenseView `json:"records"`
	Total        string        `json:"total"`
	Count        int           `json:"count"`
	DisplayName  string        `json:"display_name"`
	CurrentEmail string        `json:"current_email,omitempty"`
}

func newStateView(s services.State) stateView {
	records := make([]expenseView, 0, len(s.Records))
	for _, e := range s.Records {
		records = append(records, newExpenseView(e))
	}
	return stateView{
		Records:      records,
		Total:        core.FormatAmount(s.Total),
		Count:        len(s.Records),
		DisplayName:  s.DisplayName,
		CurrentEmail: s.CurrentEmail,
	}
}

type stepView struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type resultView struct {
	Op    string     `json:"op"`
	OK    bool       `json:"ok"`
	Steps []stepView `json:"steps"`
}

func newResultView(r services.Result) resultView {
	steps := make([]stepView, 0, len(r.Steps))
	for _, s := range r.Steps {
		v := stepView{Name: s.Name, OK: s.Err == nil}
		if s.Err != nil {
			v.Error = s.Err.Error()
		}
		steps = append(steps, v)
	}
	return resultView{Op: r.Op, OK: r.OK(), Steps: steps}
}

func findExpense(s services.State, id string) (core.Expense, bool) {
	for _, e := range s.Records {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}
