package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"gastos/internal/core"
	"gastos/internal/services"
)

// Output renders command results as text or JSON.
type Output struct {
	Format string
	Writer io.Writer
}

var (
	pendingMark = color.New(color.FgYellow).SprintFunc()
	sharedMark  = color.New(color.FgCyan).SprintFunc()
	failMark    = color.New(color.FgRed).SprintFunc()
	okMark      = color.New(color.FgGreen).SprintFunc()
)

type expenseJSON struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	OwnerName       string `json:"owner_name"`
	OwnerEmail      string `json:"owner_email,omitempty"`
	SharedWithEmail string `json:"shared_with_email,omitempty"`
	LocalPhotoPath  string `json:"local_photo_path,omitempty"`
	RemotePhotoURL  string `json:"remote_photo_url,omitempty"`
	Synced          bool   `json:"synced"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:              e.ID,
		Amount:          core.FormatAmount(e.Amount),
		Description:     e.Description,
		Date:            e.Time().Format(time.RFC3339),
		OwnerName:       e.OwnerName(),
		OwnerEmail:      e.OwnerEmail,
		SharedWithEmail: e.SharedWithEmail,
		LocalPhotoPath:  e.LocalPhotoPath,
		RemotePhotoURL:  e.RemotePhotoURL,
		Synced:          e.Synced,
	}
}

type stepJSON struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func toStepsJSON(res services.Result) []stepJSON {
	steps := make([]stepJSON, 0, len(res.Steps))
	for _, s := range res.Steps {
		v := stepJSON{Name: s.Name, OK: s.Err == nil}
		if s.Err != nil {
			v.Error = s.Err.Error()
		}
		steps = append(steps, v)
	}
	return steps
}

func (o *Output) json(v any) error {
	enc := json.NewEncoder(o.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// State prints the expense list with the running total and the signed-in identity.
func (o *Output) State(s services.State) error {
	if o.Format == "json" {
		records := make([]expenseJSON, 0, len(s.Records))
		for _, e := range s.Records {
			records = append(records, toExpenseJSON(e))
		}
		return o.json(map[string]any{
			"records":       records,
			"total":         core.FormatAmount(s.Total),
			"display_name":  s.DisplayName,
			"current_email": s.CurrentEmail,
		})
	}

	fmt.Fprintf(o.Writer, "%s\n\n", s.DisplayName)
	tw := tabwriter.NewWriter(o.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tDESCRIPTION\tOWNER\t")
	for _, e := range s.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(e.ID),
			e.Time().Format("2006-01-02 15:04"),
			core.FormatAmount(e.Amount),
			e.Description,
			e.OwnerName(),
			marks(e))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(o.Writer, "\nTotal: %s (%d)\n", core.FormatAmount(s.Total), len(s.Records))
	return err
}

// Expense prints a single expense followed by the remote steps that ran for it.
func (o *Output) Expense(e core.Expense, res services.Result, message string) error {
	if o.Format == "json" {
		return o.json(map[string]any{
			"expense": toExpenseJSON(e),
			"ok":      res.OK(),
			"steps":   toStepsJSON(res),
			"message": message,
		})
	}
	fmt.Fprintf(o.Writer, "%s  %s  %s %s\n", shortID(e.ID), core.FormatAmount(e.Amount), e.Description, marks(e))
	return o.steps(res, message)
}

// Result prints the outcome of an operation that produces no expense.
func (o *Output) Result(res services.Result, message string, extra map[string]any) error {
	if o.Format == "json" {
		v := map[string]any{
			"ok":      res.OK(),
			"steps":   toStepsJSON(res),
			"message": message,
		}
		for k, x := range extra {
			v[k] = x
		}
		return o.json(v)
	}
	return o.steps(res, message)
}

func (o *Output) steps(res services.Result, message string) error {
	for _, s := range res.Steps {
		if s.Err != nil {
			fmt.Fprintf(o.Writer, "%s %s: %v\n", failMark("✗"), s.Name, s.Err)
			continue
		}
		fmt.Fprintf(o.Writer, "%s %s\n", okMark("✓"), s.Name)
	}
	if message != "" {
		_, err := fmt.Fprintln(o.Writer, message)
		return err
	}
	return nil
}

func marks(e core.Expense) string {
	switch {
	case !e.Synced:
		return pendingMark("pending")
	case e.SharedWithEmail != "":
		return sharedMark("→ " + e.SharedWithEmail)
	default:
		return ""
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
