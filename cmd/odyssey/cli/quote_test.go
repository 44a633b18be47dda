package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/billing"
	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

type stubLookups struct{}

func (stubLookups) Product(ctx context.Context, ref string) (pricing.Lookup[pricing.CatalogEntry], error) {
	return pricing.NotFound[pricing.CatalogEntry](), nil
}

func (stubLookups) Tax(ctx context.Context, ref string) (pricing.Lookup[pricing.TaxRate], error) {
	if ref == "GST18" {
		return pricing.Found(pricing.TaxRate{Ref: "GST18", Percent: decimal.NewFromInt(18)}), nil
	}
	return pricing.NotFound[pricing.TaxRate](), nil
}

func (stubLookups) Currency(ctx context.Context, ref string) (pricing.Lookup[pricing.Currency], error) {
	if ref == "INR" {
		return pricing.Found(pricing.Currency{Ref: "INR", Code: "INR", Symbol: "₹", Scale: 2}), nil
	}
	return pricing.NotFound[pricing.Currency](), nil
}

type failingQuoter struct{}

func (failingQuoter) Quote(ctx context.Context, req billing.QuoteRequest) (*billing.Quote, error) {
	return nil, errors.New("redis down")
}

func newQuoter() Quoter {
	return billing.NewService(stubLookups{}, nil, nil)
}

const validBill = `{
	"currency_ref": "INR",
	"items": [
		{"name": "Laptop", "quantity": 2, "unit_price": "899.99", "discount_value": "10", "discount_type": "PERCENTAGE", "tax_ref": "GST18"}
	]
}`

func TestQuoteCommandJSONSuccess(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := QuoteCommand(context.Background(), newQuoter(), QuoteOptions{
		Input:      strings.NewReader(validBill),
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	require.Equal(t, ExitOK, exitCode)
	require.Empty(t, stderr.String())

	var quote struct {
		Totals struct {
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
		Submittable bool `json:"submittable"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &quote))
	require.Equal(t, "1911.58", quote.Totals.GrandTotal)
	require.True(t, quote.Submittable)
}

func TestQuoteCommandHumanViolations(t *testing.T) {
	stdout := new(bytes.Buffer)
	exitCode := QuoteCommand(context.Background(), newQuoter(), QuoteOptions{
		Input: strings.NewReader(`{
			"items": [{"name": "Cable", "quantity": 1, "unit_price": "10", "discount_value": "15", "discount_type": "FIXED"}]
		}`),
		Stdout: stdout,
		Stderr: new(bytes.Buffer),
	})
	require.Equal(t, ExitViolations, exitCode)
	require.Contains(t, stdout.String(), "Cable")
	require.Contains(t, stdout.String(), "1 violation(s)")
	require.Contains(t, stdout.String(), pricing.CodeDiscountExceedsSubtotal)
}

func TestQuoteCommandInvalidInput(t *testing.T) {
	stderr := new(bytes.Buffer)
	exitCode := QuoteCommand(context.Background(), newQuoter(), QuoteOptions{
		Input:  strings.NewReader(`{"items": [{"name": "Cable", "quantity": 0, "unit_price": "10"}]}`),
		Stdout: new(bytes.Buffer),
		Stderr: stderr,
	})
	require.Equal(t, ExitInvalid, exitCode)
	require.Contains(t, stderr.String(), "items[0].quantity")

	exitCode = QuoteCommand(context.Background(), newQuoter(), QuoteOptions{
		Input:  strings.NewReader(`not json`),
		Stdout: new(bytes.Buffer),
		Stderr: new(bytes.Buffer),
	})
	require.Equal(t, ExitInvalid, exitCode)
}

func TestQuoteCommandFailure(t *testing.T) {
	stderr := new(bytes.Buffer)
	exitCode := QuoteCommand(context.Background(), failingQuoter{}, QuoteOptions{
		Input:  strings.NewReader(validBill),
		Stdout: new(bytes.Buffer),
		Stderr: stderr,
	})
	require.Equal(t, ExitFailure, exitCode)
	require.Contains(t, stderr.String(), "redis down")
}
