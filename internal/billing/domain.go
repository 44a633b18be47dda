// Package billing is the form shell around the pricing engine: it validates
// what the bill editor submits, resolves tax and currency references, runs a
// full recomputation and shapes the result for display.
package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

// Lookups resolves master data references.
type Lookups interface {
	Product(ctx context.Context, ref string) (pricing.Lookup[pricing.CatalogEntry], error)
	Tax(ctx context.Context, ref string) (pricing.Lookup[pricing.TaxRate], error)
	Currency(ctx context.Context, ref string) (pricing.Lookup[pricing.Currency], error)
}

// ItemRequest is one editable row of the bill form.
type ItemRequest struct {
	ProductRef    string               `json:"product_ref" validate:"omitempty,max=64"`
	Name          string               `json:"name" validate:"required,max=200"`
	Quantity      int64                `json:"quantity" validate:"gte=1"`
	UnitPrice     decimal.Decimal      `json:"unit_price" validate:"gte=0"`
	HSNCode       string               `json:"hsn_code" validate:"omitempty,max=20"`
	DiscountValue decimal.Decimal      `json:"discount_value" validate:"gte=0"`
	DiscountType  pricing.DiscountType `json:"discount_type" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	TaxRef        string               `json:"tax_ref" validate:"omitempty,max=32"`
	CurrencyRef   string               `json:"currency_ref" validate:"omitempty,len=3"`
}

// QuoteRequest is the full bill form state sent on every edit.
type QuoteRequest struct {
	CurrencyRef          string               `json:"currency_ref" validate:"omitempty,len=3"`
	Items                []ItemRequest        `json:"items" validate:"max=500,dive"`
	OverallDiscountValue decimal.Decimal      `json:"overall_discount_value" validate:"gte=0"`
	OverallDiscountType  pricing.DiscountType `json:"overall_discount_type" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	OverallTaxRef        string               `json:"overall_tax_ref" validate:"omitempty,max=32"`
	TaxEnabled           *bool                `json:"tax_enabled"`
}

func (r QuoteRequest) taxEnabled() bool {
	return r.TaxEnabled == nil || *r.TaxEnabled
}

// LineView is a line's derived amounts rounded for display.
type LineView struct {
	TaxRatePercent   string `json:"tax_rate_percent"`
	Subtotal         string `json:"subtotal"`
	DiscountAmount   string `json:"discount_amount"`
	TaxableAmount    string `json:"taxable_amount"`
	TaxAmount        string `json:"tax_amount"`
	LineTotal        string `json:"line_total"`
	DiscountExceeded bool   `json:"discount_exceeded"`
}

// TotalsView is the bill's derived amounts rounded for display.
type TotalsView struct {
	SubTotal              string `json:"sub_total"`
	ItemDiscountTotal     string `json:"item_discount_total"`
	ItemTaxTotal          string `json:"item_tax_total"`
	OverallTaxPercent     string `json:"overall_tax_percent"`
	OverallDiscountAmount string `json:"overall_discount_amount"`
	AfterOverallDiscount  string `json:"after_overall_discount"`
	OverallTaxAmount      string `json:"overall_tax_amount"`
	GrandTotal            string `json:"grand_total"`
}

// Quote is the recomputed state of a bill.
type Quote struct {
	ID                  uuid.UUID           `json:"id"`
	Currency            pricing.Currency    `json:"currency"`
	TaxEnabled          bool                `json:"tax_enabled"`
	Lines               []LineView          `json:"lines"`
	Totals              TotalsView          `json:"totals"`
	FormattedGrandTotal string              `json:"formatted_grand_total"`
	Violations          []pricing.Violation `json:"violations"`
	Submittable         bool                `json:"submittable"`

	// Raw keeps full precision amounts for callers that persist or compare.
	Raw pricing.BillTotals `json:"-"`
}

// ResolveItemRequest asks for a new line pre-filled from the catalog.
type ResolveItemRequest struct {
	ProductRef string               `json:"product_ref" validate:"required,max=64"`
	Bill       pricing.BillCurrency `json:"bill_currency"`
}
