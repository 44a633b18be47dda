package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

// amount renders a value rounded to the currency scale with a fixed number
// of decimals, e.g. "1061.99".
func amount(cur pricing.Currency, v decimal.Decimal) string {
	return pricing.Round(v, cur.Scale).StringFixed(cur.Scale)
}

// FormatAmount renders a value for people: currency symbol, grouping and
// the currency's number of decimals, e.g. "₹1,061.99".
func FormatAmount(cur pricing.Currency, v decimal.Decimal) string {
	symbol := cur.Symbol
	if symbol == "" {
		symbol = cur.Code + " "
	}
	return symbol + groupThousands(amount(cur, v))
}

// groupThousands inserts commas into the integer part of a fixed-point
// string such as "-1234567.89".
func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, hasFrac := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
