// Package lookup resolves product, tax and currency references from master
// data into the tagged results the pricing engine consumes.
package lookup

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

var (
	// ErrNotFound indicates the reference does not exist in master data.
	ErrNotFound = errors.New("lookup: not found")
	// ErrSchemaMissing indicates the master data tables are not present.
	ErrSchemaMissing = errors.New("lookup: master data schema missing")
)

// Kinds of master data served by this package.
const (
	KindProduct  = "product"
	KindTax      = "tax"
	KindCurrency = "currency"
)

// Repository reads master data rows.
type Repository interface {
	GetProduct(ctx context.Context, code string) (pricing.CatalogEntry, error)
	GetTax(ctx context.Context, code string) (pricing.TaxRate, error)
	GetCurrency(ctx context.Context, code string) (pricing.Currency, error)
	ListProductRefs(ctx context.Context) ([]string, error)
	ListTaxRefs(ctx context.Context) ([]string, error)
	ListCurrencyRefs(ctx context.Context) ([]string, error)
}

// WarmStats reports how many references a warmup loaded.
type WarmStats struct {
	Products   int `json:"products"`
	Taxes      int `json:"taxes"`
	Currencies int `json:"currencies"`
}
