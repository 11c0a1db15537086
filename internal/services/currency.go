package services

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// currencyPrinter localizes number grouping ("1,234.50"). The PDF renderer
// needs a plain "$"-prefixed string rather than a locale-placed currency
// symbol, so both formatters build on the same printer.
var currencyPrinter = message.NewPrinter(language.English)

// RoundCents rounds a currency amount half-away-from-zero to two decimals.
// Every derived money value (averages, subtotals, totals, negotiation
// values) passes through this before storage or display.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatCurrency renders an optional amount for display. A nil amount (a
// card with no recorded sales) renders as "N/A".
func FormatCurrency(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return FormatPDFCurrency(*v)
}

// FormatPDFCurrency renders an amount as a "$"-prefixed string with grouped
// thousands and exactly two decimal digits.
func FormatPDFCurrency(v float64) string {
	return currencyPrinter.Sprintf("$%.2f", v)
}
