// Package pricing computes line-item and bill totals for purchase and sales
// documents. Every function is pure: callers pass the full item list on each
// edit and receive a fresh set of totals.
package pricing

import (
	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Valid reports whether the discount type is known.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// LineItem is one priced row of a bill.
type LineItem struct {
	ProductRef    string          `json:"product_ref,omitempty"`
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	HSNCode       string          `json:"hsn_code,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	DiscountType  DiscountType    `json:"discount_type"`
	TaxRef        string          `json:"tax_ref,omitempty"`
	CurrencyRef   string          `json:"currency_ref,omitempty"`
}

// LineItemTotals holds the derived amounts of a single line.
type LineItemTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`

	// RequestedDiscount is the discount before capping at the subtotal.
	RequestedDiscount decimal.Decimal `json:"requested_discount"`
	DiscountExceeded  bool            `json:"discount_exceeded"`
}

// Line pairs an item with the tax rate resolved for it.
type Line struct {
	Item           LineItem
	TaxRatePercent decimal.Decimal
}

// BillInput is the snapshot handed to ComputeBillTotals.
type BillInput struct {
	Lines                 []Line
	OverallDiscountValue  decimal.Decimal
	OverallDiscountType   DiscountType
	OverallTaxRatePercent decimal.Decimal
	TaxEnabled            bool
}

// BillTotals holds the derived amounts of the whole bill.
type BillTotals struct {
	Lines                 []LineItemTotals `json:"lines"`
	SubTotal              decimal.Decimal  `json:"sub_total"`
	ItemDiscountTotal     decimal.Decimal  `json:"item_discount_total"`
	ItemTaxTotal          decimal.Decimal  `json:"item_tax_total"`
	OverallDiscountAmount decimal.Decimal  `json:"overall_discount_amount"`
	AfterOverallDiscount  decimal.Decimal  `json:"after_overall_discount"`
	OverallTaxAmount      decimal.Decimal  `json:"overall_tax_amount"`
	GrandTotal            decimal.Decimal  `json:"grand_total"`
	Violations            []Violation      `json:"violations,omitempty"`
}

// BillLevel marks a violation that does not belong to a single line.
const BillLevel = -1

// Violation codes.
const (
	CodeDiscountExceedsSubtotal = "discount_exceeds_subtotal"
	CodeCurrencyMismatch        = "currency_mismatch"
)

// Violation is an auditable condition detected while computing totals. It
// never stops the computation but must block submission.
type Violation struct {
	Line    int    `json:"line"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CatalogEntry is what the product catalog returns for a product reference.
type CatalogEntry struct {
	ProductRef  string          `json:"product_ref"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	HSNCode     string          `json:"hsn_code"`
	TaxRef      string          `json:"tax_ref"`
	CurrencyRef string          `json:"currency_ref"`
}

// TaxRate is a named percentage.
type TaxRate struct {
	Ref     string          `json:"ref"`
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
}

// Currency describes how amounts in a currency are displayed.
type Currency struct {
	Ref    string `json:"ref"`
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Scale  int32  `json:"scale"`
}

// Lookup is the result of resolving a reference: either Found with a value
// or not found.
type Lookup[T any] struct {
	Value T
	Found bool
}

// Found wraps a resolved value.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, Found: true}
}

// NotFound returns the empty result.
func NotFound[T any]() Lookup[T] {
	return Lookup[T]{}
}
