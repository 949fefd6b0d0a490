package recurring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown splits a line total into its subtotal and tax parts.
// Subtotal + Tax always equals Total.
type Breakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal returns rate * quantity * (1 + taxPercent/100) rounded half-up to
// two places. A line with no rate totals zero.
func LineTotal(item LineItem) decimal.Decimal {
	return Amounts(item).Total
}

// Amounts computes the invoice breakdown for item.
func Amounts(item LineItem) Breakdown {
	if !item.Rate.Valid {
		return Breakdown{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	}
	gross := item.Rate.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
	total := gross.Mul(decimal.NewFromInt(1).Add(item.TaxPercent.Div(hundred))).Round(2)
	subtotal := gross.Round(2)
	return Breakdown{
		Subtotal: subtotal,
		Tax:      total.Sub(subtotal),
		Total:    total,
	}
}

// FormatAmount renders an amount for display, e.g. "INR 236.00".
func FormatAmount(currency string, amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}
