// Package core holds the expense record, its amount handling and the session
// identity shared by the local store, the remote store and the sync engine.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a user may enter.
var MaxAmount = decimal.NewFromInt(100_000_000)

// ParseAmount converts user input into a decimal amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, exponents and
// grouping characters are rejected. Zero is a valid amount; negative values are not.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount enforces 0 <= amount <= MaxAmount.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	if d.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// SumAmounts recomputes the total over every expense.
func SumAmounts(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
