package remote

import (
	"fmt"
	"strings"
)

// Filter is an equality predicate or a disjunction of filters, the only shapes the
// backend needs.
type Filter struct {
	Column string
	Value  string
	Any    []Filter
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

func Or(filters ...Filter) Filter {
	return Filter{Any: filters}
}

// VisibleFilter selects rows created by or shared with email.
func VisibleFilter(email string) Filter {
	return Or(Eq("email_creador", email), Eq("email_compartido", email))
}

// PostgREST renders the filter as a query parameter key and value, e.g.
// ("or", "(email_creador.eq.a,email_compartido.eq.a)") or ("id", "eq.x").
func (f Filter) PostgREST() (key, value string) {
	if len(f.Any) == 0 {
		return f.Column, "eq." + f.Value
	}
	parts := make([]string, 0, len(f.Any))
	for _, sub := range f.Any {
		parts = append(parts, sub.postgRESTInner())
	}
	return "or", "(" + strings.Join(parts, ",") + ")"
}

func (f Filter) postgRESTInner() string {
	if len(f.Any) == 0 {
		return f.Column + ".eq." + quoteREST(f.Value)
	}
	_, v := f.PostgREST()
	return "or" + v
}

// SQL renders the filter as a WHERE fragment with $n placeholders starting at
// argOffset+1, returning the fragment and its arguments.
func (f Filter) SQL(argOffset int) (string, []any) {
	if len(f.Any) == 0 {
		return fmt.Sprintf("%s = $%d", f.Column, argOffset+1), []any{f.Value}
	}
	var (
		parts []string
		args  []any
	)
	for _, sub := range f.Any {
		frag, subArgs := sub.SQL(argOffset + len(args))
		parts = append(parts, frag)
		args = append(args, subArgs...)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// Match evaluates the filter against a row, for in-memory backends.
func (f Filter) Match(r Row) bool {
	if len(f.Any) == 0 {
		return columnValue(r, f.Column) == f.Value
	}
	for _, sub := range f.Any {
		if sub.Match(r) {
			return true
		}
	}
	return false
}

func columnValue(r Row, column string) string {
	switch column {
	case "id":
		return r.ID
	case "descripcion":
		return r.Description
	case "foto_url":
		return value(r.PhotoURL)
	case "email_compartido":
		return value(r.SharedWithEmail)
	case "user_id":
		return value(r.OwnerID)
	case "email_creador":
		return value(r.OwnerEmail)
	case "nombre_creador":
		return value(r.OwnerName)
	}
	return ""
}

// quoteREST double-quotes values containing characters reserved inside a PostgREST
// logical operator list.
func quoteREST(v string) string {
	if strings.ContainsAny(v, ",.:()\" ") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}
