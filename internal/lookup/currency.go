package lookup

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

var symbolPrinter = message.NewPrinter(language.English)

// isoCurrency resolves a code against the ISO 4217 table shipped with
// x/text. It is used when the currencies table has no row for the code.
func isoCurrency(code string) (pricing.Currency, bool) {
	unit, err := currency.ParseISO(pricing.NormalizeCurrencyRef(code))
	if err != nil {
		return pricing.Currency{}, false
	}
	scale, _ := currency.Standard.Rounding(unit)
	iso := unit.String()
	symbol := symbolPrinter.Sprint(currency.Symbol(unit))
	if symbol == "" {
		symbol = iso
	}
	return pricing.Currency{Ref: iso, Code: iso, Symbol: symbol, Scale: int32(scale)}, true
}
