package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateItem checks the numeric fields of an item. Field names are relative
// to the item.
func ValidateItem(item LineItem) ValidationErrors {
	var errs ValidationErrors
	if item.Quantity < 1 {
		errs = append(errs, ValidationError{Field: "quantity", Message: "must be at least 1"})
	}
	if item.UnitPrice.IsNegative() {
		errs = append(errs, ValidationError{Field: "unit_price", Message: "must not be negative"})
	}
	if item.DiscountValue.IsNegative() {
		errs = append(errs, ValidationError{Field: "discount_value", Message: "must not be negative"})
	}
	if item.DiscountType != "" && !item.DiscountType.Valid() {
		errs = append(errs, ValidationError{Field: "discount_type", Message: "must be PERCENTAGE or FIXED"})
	}
	return errs
}

// ComputeLineItem derives the totals of a single item. Tax is charged on the
// discounted amount; a discount larger than the subtotal is capped and flagged.
func ComputeLineItem(item LineItem, taxRatePercent decimal.Decimal) (LineItemTotals, error) {
	errs := ValidateItem(item)
	if taxRatePercent.IsNegative() {
		errs = append(errs, ValidationError{Field: "tax_rate", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return LineItemTotals{}, errs
	}
	return computeLine(item, taxRatePercent), nil
}

func computeLine(item LineItem, taxRatePercent decimal.Decimal) LineItemTotals {
	subtotal := decimal.NewFromInt(item.Quantity).Mul(item.UnitPrice)
	requested := discountAmount(subtotal, item.DiscountValue, item.DiscountType)
	applied, exceeded := capDiscount(requested, subtotal)
	taxable := subtotal.Sub(applied)
	tax := percentOf(taxable, taxRatePercent)
	return LineItemTotals{
		Subtotal:          subtotal,
		DiscountAmount:    applied,
		TaxableAmount:     taxable,
		TaxAmount:         tax,
		LineTotal:         taxable.Add(tax),
		RequestedDiscount: requested,
		DiscountExceeded:  exceeded,
	}
}

// ComputeBillTotals recomputes every derived amount of a bill from scratch.
// The input is not retained.
func ComputeBillTotals(in BillInput) (BillTotals, error) {
	if errs := validateBill(in); len(errs) > 0 {
		return BillTotals{}, errs
	}

	totals := BillTotals{
		Lines:             make([]LineItemTotals, 0, len(in.Lines)),
		SubTotal:          decimal.Zero,
		ItemDiscountTotal: decimal.Zero,
		ItemTaxTotal:      decimal.Zero,
	}
	for i, line := range in.Lines {
		rate := line.TaxRatePercent
		if !in.TaxEnabled {
			rate = decimal.Zero
		}
		lt := computeLine(line.Item, rate)
		if lt.DiscountExceeded {
			totals.Violations = append(totals.Violations, Violation{
				Line:    i,
				Field:   fmt.Sprintf("items[%d].discount_value", i),
				Code:    CodeDiscountExceedsSubtotal,
				Message: fmt.Sprintf("discount %s exceeds subtotal %s", lt.RequestedDiscount.StringFixed(2), lt.Subtotal.StringFixed(2)),
			})
		}
		totals.Lines = append(totals.Lines, lt)
		totals.SubTotal = totals.SubTotal.Add(lt.LineTotal)
		totals.ItemDiscountTotal = totals.ItemDiscountTotal.Add(lt.DiscountAmount)
		totals.ItemTaxTotal = totals.ItemTaxTotal.Add(lt.TaxAmount)
	}

	requested := discountAmount(totals.SubTotal, in.OverallDiscountValue, in.OverallDiscountType)
	applied, exceeded := capDiscount(requested, totals.SubTotal)
	if exceeded {
		totals.Violations = append(totals.Violations, Violation{
			Line:    BillLevel,
			Field:   "overall_discount_value",
			Code:    CodeDiscountExceedsSubtotal,
			Message: fmt.Sprintf("discount %s exceeds subtotal %s", requested.StringFixed(2), totals.SubTotal.StringFixed(2)),
		})
	}
	totals.OverallDiscountAmount = applied
	totals.AfterOverallDiscount = totals.SubTotal.Sub(applied)

	overallRate := in.OverallTaxRatePercent
	if !in.TaxEnabled {
		overallRate = decimal.Zero
	}
	totals.OverallTaxAmount = percentOf(totals.AfterOverallDiscount, overallRate)
	totals.GrandTotal = totals.AfterOverallDiscount.Add(totals.OverallTaxAmount)
	return totals, nil
}

func validateBill(in BillInput) ValidationErrors {
	var errs ValidationErrors
	for i, line := range in.Lines {
		for _, e := range ValidateItem(line.Item) {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].%s", i, e.Field), Message: e.Message})
		}
		if line.TaxRatePercent.IsNegative() {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("items[%d].tax_rate", i), Message: "must not be negative"})
		}
	}
	if in.OverallDiscountValue.IsNegative() {
		errs = append(errs, ValidationError{Field: "overall_discount_value", Message: "must not be negative"})
	}
	if in.OverallDiscountType != "" && !in.OverallDiscountType.Valid() {
		errs = append(errs, ValidationError{Field: "overall_discount_type", Message: "must be PERCENTAGE or FIXED"})
	}
	if in.OverallTaxRatePercent.IsNegative() {
		errs = append(errs, ValidationError{Field: "overall_tax_rate", Message: "must not be negative"})
	}
	return errs
}

// discountAmount interprets value against base. An empty type is treated as
// a percentage.
func discountAmount(base, value decimal.Decimal, kind DiscountType) decimal.Decimal {
	if kind == DiscountFixed {
		return value
	}
	return percentOf(base, value)
}

// capDiscount limits the applied discount to the base so the taxable amount
// never goes below zero.
func capDiscount(requested, base decimal.Decimal) (decimal.Decimal, bool) {
	if requested.GreaterThan(base) {
		return base, true
	}
	return requested, false
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() || amount.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(percent).Div(hundred)
}

// Round rounds an amount for display. Halves round away from zero.
func Round(amount decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Round(scale)
}
