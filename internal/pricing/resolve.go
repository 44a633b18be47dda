package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BillCurrency is the currency state of a bill being edited. Locked is set
// once an item has carried a catalog currency into the bill.
type BillCurrency struct {
	Ref    string `json:"ref"`
	Locked bool   `json:"locked"`
}

// Resolution is the outcome of pulling a catalog product into a new item.
type Resolution struct {
	Item     LineItem     `json:"item"`
	Bill     BillCurrency `json:"bill_currency"`
	Currency *Currency    `json:"currency,omitempty"`
}

// ResolveProductIntoItem builds a line item from a catalog entry. Quantity
// defaults to 1 and discount to zero. The first product that carries a
// currency fixes the bill currency; a later product in a different currency
// is rejected with *CurrencyMismatchError.
func ResolveProductIntoItem(ref string, entry Lookup[CatalogEntry], currency Lookup[Currency], bill BillCurrency) (Resolution, error) {
	if !entry.Found {
		return Resolution{Bill: bill}, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
	}
	e := entry.Value
	item := LineItem{
		ProductRef:    ref,
		Name:          e.Name,
		Quantity:      1,
		UnitPrice:     e.UnitPrice,
		HSNCode:       e.HSNCode,
		DiscountValue: decimal.Zero,
		DiscountType:  DiscountPercentage,
		TaxRef:        e.TaxRef,
	}
	if strings.TrimSpace(e.CurrencyRef) == "" {
		return Resolution{Item: item, Bill: bill}, nil
	}
	if !currency.Found {
		return Resolution{Bill: bill}, fmt.Errorf("%w: %s", ErrCurrencyNotFound, e.CurrencyRef)
	}

	code := NormalizeCurrencyRef(currency.Value.Code)
	if bill.Locked && !SameCurrency(bill.Ref, code) {
		return Resolution{Bill: bill}, &CurrencyMismatchError{BillCurrency: NormalizeCurrencyRef(bill.Ref), ItemCurrency: code}
	}
	item.CurrencyRef = code
	cur := currency.Value
	return Resolution{
		Item:     item,
		Bill:     BillCurrency{Ref: code, Locked: true},
		Currency: &cur,
	}, nil
}

// CheckCurrencyConsistency flags every item whose currency differs from the
// bill currency. When the bill has no currency yet the first item currency
// is taken as the reference.
func CheckCurrencyConsistency(billCurrencyRef string, items []LineItem) []Violation {
	expected := NormalizeCurrencyRef(billCurrencyRef)
	var out []Violation
	for i, item := range items {
		if strings.TrimSpace(item.CurrencyRef) == "" {
			continue
		}
		if expected == "" {
			expected = NormalizeCurrencyRef(item.CurrencyRef)
			continue
		}
		if !SameCurrency(expected, item.CurrencyRef) {
			out = append(out, Violation{
				Line:    i,
				Field:   fmt.Sprintf("items[%d].currency_ref", i),
				Code:    CodeCurrencyMismatch,
				Message: fmt.Sprintf("item currency %s does not match bill currency %s", NormalizeCurrencyRef(item.CurrencyRef), expected),
			})
		}
	}
	return out
}

// NormalizeCurrencyRef trims and upper-cases a currency reference.
func NormalizeCurrencyRef(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// SameCurrency compares two currency references case-insensitively.
func SameCurrency(a, b string) bool {
	return NormalizeCurrencyRef(a) == NormalizeCurrencyRef(b)
}
