// Package render formats derived views as markdown and renders markdown for
// the terminal.
package render

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currency never returns nil; money.New falls back to a generic currency
// for codes it does not know.
func currency(code string) money.Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "MYR"
	}
	return *money.New(0, code).Currency()
}

// Money formats amount in the conventions of currency, e.g. "RM1,234.50".
func Money(amount decimal.Decimal, code string) string {
	cur := currency(code)
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// Percent formats a rate as "3.5%".
func Percent(rate decimal.Decimal) string {
	return rate.String() + "%"
}
