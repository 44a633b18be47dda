package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

// Quote outcomes recorded in metrics.
const (
	outcomeOK         = "ok"
	outcomeViolations = "violations"
	outcomeInvalid    = "invalid"
)

// Service recomputes bills and resolves catalog products into items.
type Service struct {
	lookups         Lookups
	validate        *validator.Validate
	metrics         *observability.Metrics
	logger          *slog.Logger
	defaultCurrency string
}

// Option customises a Service.
type Option func(*Service)

// WithDefaultCurrency sets the currency used when neither the bill nor any
// item names one.
func WithDefaultCurrency(code string) Option {
	return func(s *Service) {
		s.defaultCurrency = pricing.NormalizeCurrencyRef(code)
	}
}

// NewService constructs the billing service. metrics and logger may be nil.
func NewService(lookups Lookups, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		lookups:         lookups,
		validate:        newValidator(),
		metrics:         metrics,
		logger:          logger,
		defaultCurrency: "INR",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote validates the submitted form, resolves its references and computes a
// fresh set of totals. Field problems come back as pricing.ValidationErrors;
// any other error is an infrastructure failure.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		s.metrics.ObserveQuote(outcomeInvalid, len(req.Items))
		return nil, fieldErrors(err)
	}

	taxEnabled := req.taxEnabled()
	var verrs pricing.ValidationErrors

	items := make([]pricing.LineItem, len(req.Items))
	lines := make([]pricing.Line, len(req.Items))
	for i, it := range req.Items {
		items[i] = pricing.LineItem{
			ProductRef:    strings.TrimSpace(it.ProductRef),
			Name:          strings.TrimSpace(it.Name),
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			HSNCode:       strings.TrimSpace(it.HSNCode),
			DiscountValue: it.DiscountValue,
			DiscountType:  it.DiscountType,
			TaxRef:        strings.TrimSpace(it.TaxRef),
			CurrencyRef:   pricing.NormalizeCurrencyRef(it.CurrencyRef),
		}
		if items[i].Name == "" {
			verrs = append(verrs, pricing.ValidationError{
				Field:   fmt.Sprintf("items[%d].name", i),
				Message: "is required",
			})
		}
		rate, ok, err := s.taxRate(ctx, taxEnabled, items[i].TaxRef)
		if err != nil {
			return nil, err
		}
		if !ok {
			verrs = append(verrs, pricing.ValidationError{
				Field:   fmt.Sprintf("items[%d].tax_ref", i),
				Message: "could not resolve tax " + items[i].TaxRef,
			})
		}
		lines[i] = pricing.Line{Item: items[i], TaxRatePercent: rate}
	}

	overallRate, ok, err := s.taxRate(ctx, taxEnabled, strings.TrimSpace(req.OverallTaxRef))
	if err != nil {
		return nil, err
	}
	if !ok {
		verrs = append(verrs, pricing.ValidationError{
			Field:   "overall_tax_ref",
			Message: "could not resolve tax " + strings.TrimSpace(req.OverallTaxRef),
		})
	}

	billRef := s.billCurrencyRef(req.CurrencyRef, items)
	currency, err := s.lookups.Currency(ctx, billRef)
	if err != nil {
		return nil, fmt.Errorf("billing: resolve currency: %w", err)
	}
	if !currency.Found {
		verrs = append(verrs, pricing.ValidationError{
			Field:   "currency_ref",
			Message: "could not resolve currency " + billRef,
		})
	}

	if len(verrs) > 0 {
		s.metrics.ObserveQuote(outcomeInvalid, len(req.Items))
		return nil, verrs
	}

	totals, err := pricing.ComputeBillTotals(pricing.BillInput{
		Lines:                 lines,
		OverallDiscountValue:  req.OverallDiscountValue,
		OverallDiscountType:   req.OverallDiscountType,
		OverallTaxRatePercent: overallRate,
		TaxEnabled:            taxEnabled,
	})
	if err != nil {
		s.metrics.ObserveQuote(outcomeInvalid, len(req.Items))
		return nil, err
	}
	totals.Violations = append(totals.Violations, pricing.CheckCurrencyConsistency(currency.Value.Code, items)...)

	quote := buildQuote(currency.Value, taxEnabled, lines, overallRate, totals)
	outcome := outcomeOK
	if !quote.Submittable {
		outcome = outcomeViolations
	}
	s.metrics.ObserveQuote(outcome, len(lines))
	s.logger.DebugContext(ctx, "quote computed",
		slog.String("quote_id", quote.ID.String()),
		slog.String("currency", quote.Currency.Code),
		slog.Int("lines", len(lines)),
		slog.String("grand_total", quote.Totals.GrandTotal),
		slog.Int("violations", len(quote.Violations)),
	)
	return quote, nil
}

// ResolveItem looks up a catalog product and turns it into a new line item,
// enforcing that a bill holds a single currency.
func (s *Service) ResolveItem(ctx context.Context, req ResolveItemRequest) (*pricing.Resolution, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fieldErrors(err)
	}
	ref := strings.TrimSpace(req.ProductRef)

	entry, err := s.lookups.Product(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("billing: resolve product: %w", err)
	}
	currency := pricing.NotFound[pricing.Currency]()
	if entry.Found && strings.TrimSpace(entry.Value.CurrencyRef) != "" {
		currency, err = s.lookups.Currency(ctx, entry.Value.CurrencyRef)
		if err != nil {
			return nil, fmt.Errorf("billing: resolve currency: %w", err)
		}
	}

	res, err := pricing.ResolveProductIntoItem(ref, entry, currency, req.Bill)
	if err != nil {
		s.logger.InfoContext(ctx, "product not added", slog.String("product_ref", ref), slog.Any("error", err))
		return nil, err
	}
	return &res, nil
}

// Tax resolves a tax reference for display.
func (s *Service) Tax(ctx context.Context, ref string) (pricing.Lookup[pricing.TaxRate], error) {
	return s.lookups.Tax(ctx, ref)
}

// Currency resolves a currency reference for display.
func (s *Service) Currency(ctx context.Context, ref string) (pricing.Lookup[pricing.Currency], error) {
	return s.lookups.Currency(ctx, ref)
}

// Product resolves a catalog entry for display.
func (s *Service) Product(ctx context.Context, ref string) (pricing.Lookup[pricing.CatalogEntry], error) {
	return s.lookups.Product(ctx, ref)
}

// taxRate resolves a tax reference to its percentage. An empty reference or
// a bill with tax disabled yields zero. ok is false only for an unknown ref.
func (s *Service) taxRate(ctx context.Context, enabled bool, ref string) (decimal.Decimal, bool, error) {
	if !enabled || ref == "" {
		return decimal.Zero, true, nil
	}
	tax, err := s.lookups.Tax(ctx, ref)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("billing: resolve tax: %w", err)
	}
	if !tax.Found {
		return decimal.Zero, false, nil
	}
	return tax.Value.Percent, true, nil
}

func (s *Service) billCurrencyRef(ref string, items []pricing.LineItem) string {
	if code := pricing.NormalizeCurrencyRef(ref); code != "" {
		return code
	}
	for _, item := range items {
		if item.CurrencyRef != "" {
			return item.CurrencyRef
		}
	}
	return s.defaultCurrency
}

func buildQuote(cur pricing.Currency, taxEnabled bool, lines []pricing.Line, overallRate decimal.Decimal, totals pricing.BillTotals) *Quote {
	views := make([]LineView, len(totals.Lines))
	for i, lt := range totals.Lines {
		rate := lines[i].TaxRatePercent
		if !taxEnabled {
			rate = decimal.Zero
		}
		views[i] = LineView{
			TaxRatePercent:   rate.String(),
			Subtotal:         amount(cur, lt.Subtotal),
			DiscountAmount:   amount(cur, lt.DiscountAmount),
			TaxableAmount:    amount(cur, lt.TaxableAmount),
			TaxAmount:        amount(cur, lt.TaxAmount),
			LineTotal:        amount(cur, lt.LineTotal),
			DiscountExceeded: lt.DiscountExceeded,
		}
	}
	if !taxEnabled {
		overallRate = decimal.Zero
	}
	violations := totals.Violations
	if violations == nil {
		violations = []pricing.Violation{}
	}
	return &Quote{
		ID:         uuid.New(),
		Currency:   cur,
		TaxEnabled: taxEnabled,
		Lines:      views,
		Totals: TotalsView{
			SubTotal:              amount(cur, totals.SubTotal),
			ItemDiscountTotal:     amount(cur, totals.ItemDiscountTotal),
			ItemTaxTotal:          amount(cur, totals.ItemTaxTotal),
			OverallTaxPercent:     overallRate.String(),
			OverallDiscountAmount: amount(cur, totals.OverallDiscountAmount),
			AfterOverallDiscount:  amount(cur, totals.AfterOverallDiscount),
			OverallTaxAmount:      amount(cur, totals.OverallTaxAmount),
			GrandTotal:            amount(cur, totals.GrandTotal),
		},
		FormattedGrandTotal: FormatAmount(cur, totals.GrandTotal),
		Violations:          violations,
		Submittable:         len(violations) == 0,
		Raw:                 totals,
	}
}
