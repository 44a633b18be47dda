package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

const pgUndefinedTable = "42P01"

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed master data reader.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetProduct(ctx context.Context, code string) (pricing.CatalogEntry, error) {
	const query = `SELECT code, name, price::text, COALESCE(hsn_code, ''), COALESCE(tax_code, ''), COALESCE(currency_code, '')
FROM products WHERE code = $1 AND is_active`
	var (
		entry pricing.CatalogEntry
		price string
	)
	err := r.pool.QueryRow(ctx, query, code).Scan(&entry.ProductRef, &entry.Name, &price, &entry.HSNCode, &entry.TaxRef, &entry.CurrencyRef)
	if err != nil {
		return pricing.CatalogEntry{}, mapError("get product", err)
	}
	entry.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return pricing.CatalogEntry{}, fmt.Errorf("lookup: product %s price: %w", code, err)
	}
	entry.CurrencyRef = pricing.NormalizeCurrencyRef(entry.CurrencyRef)
	return entry, nil
}

func (r *repository) GetTax(ctx context.Context, code string) (pricing.TaxRate, error) {
	const query = `SELECT code, name, rate::text FROM taxes WHERE code = $1`
	var (
		tax  pricing.TaxRate
		rate string
	)
	err := r.pool.QueryRow(ctx, query, code).Scan(&tax.Ref, &tax.Name, &rate)
	if err != nil {
		return pricing.TaxRate{}, mapError("get tax", err)
	}
	tax.Percent, err = decimal.NewFromString(rate)
	if err != nil {
		return pricing.TaxRate{}, fmt.Errorf("lookup: tax %s rate: %w", code, err)
	}
	return tax, nil
}

func (r *repository) GetCurrency(ctx context.Context, code string) (pricing.Currency, error) {
	const query = `SELECT code, symbol, minor_units FROM currencies WHERE code = $1`
	var cur pricing.Currency
	err := r.pool.QueryRow(ctx, query, pricing.NormalizeCurrencyRef(code)).Scan(&cur.Code, &cur.Symbol, &cur.Scale)
	if err != nil {
		return pricing.Currency{}, mapError("get currency", err)
	}
	cur.Ref = cur.Code
	return cur, nil
}

func (r *repository) ListProductRefs(ctx context.Context) ([]string, error) {
	return r.listCodes(ctx, "list products", `SELECT code FROM products WHERE is_active ORDER BY code`)
}

func (r *repository) ListTaxRefs(ctx context.Context) ([]string, error) {
	return r.listCodes(ctx, "list taxes", `SELECT code FROM taxes ORDER BY code`)
}

func (r *repository) ListCurrencyRefs(ctx context.Context) ([]string, error) {
	return r.listCodes(ctx, "list currencies", `SELECT code FROM currencies ORDER BY code`)
}

func (r *repository) listCodes(ctx context.Context, op, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("lookup: %s: %w", op, err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return codes, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return fmt.Errorf("lookup: %s: %w", op, err)
}
