package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

type mockRepo struct {
	products     map[string]pricing.CatalogEntry
	taxes        map[string]pricing.TaxRate
	currencies   map[string]pricing.Currency
	productCalls int
	taxCalls     int
	taxErr       error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products: map[string]pricing.CatalogEntry{
			"LAPTOP-14": {
				ProductRef:  "LAPTOP-14",
				Name:        "Laptop 14in",
				UnitPrice:   decimal.RequireFromString("899.99"),
				HSNCode:     "8471",
				TaxRef:      "GST18",
				CurrencyRef: "INR",
			},
		},
		taxes: map[string]pricing.TaxRate{
			"GST18": {Ref: "GST18", Name: "GST 18%", Percent: decimal.RequireFromString("18")},
		},
		currencies: map[string]pricing.Currency{
			"INR": {Ref: "INR", Code: "INR", Symbol: "₹", Scale: 2},
		},
	}
}

func (m *mockRepo) GetProduct(ctx context.Context, code string) (pricing.CatalogEntry, error) {
	m.productCalls++
	p, ok := m.products[code]
	if !ok {
		return pricing.CatalogEntry{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) GetTax(ctx context.Context, code string) (pricing.TaxRate, error) {
	m.taxCalls++
	if m.taxErr != nil {
		return pricing.TaxRate{}, m.taxErr
	}
	t, ok := m.taxes[code]
	if !ok {
		return pricing.TaxRate{}, ErrNotFound
	}
	return t, nil
}

func (m *mockRepo) GetCurrency(ctx context.Context, code string) (pricing.Currency, error) {
	c, ok := m.currencies[code]
	if !ok {
		return pricing.Currency{}, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) ListProductRefs(ctx context.Context) ([]string, error) {
	return keys(m.products), nil
}

func (m *mockRepo) ListTaxRefs(ctx context.Context) ([]string, error) {
	return keys(m.taxes), nil
}

func (m *mockRepo) ListCurrencyRefs(ctx context.Context) ([]string, error) {
	return keys(m.currencies), nil
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute), observability.NewMetrics(), nil)
}

func TestProductLookupIsCachedUntilInvalidated(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	res, err := svc.Product(ctx, "LAPTOP-14")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "Laptop 14in", res.Value.Name)
	assert.True(t, res.Value.UnitPrice.Equal(decimal.RequireFromString("899.99")))
	assert.Equal(t, 1, repo.productCalls)

	res, err = svc.Product(ctx, " LAPTOP-14 ")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "INR", res.Value.CurrencyRef)
	assert.Equal(t, 1, repo.productCalls, "second lookup should be served from cache")

	_, err = svc.Invalidate(ctx)
	require.NoError(t, err)
	repo.products["LAPTOP-14"] = pricing.CatalogEntry{ProductRef: "LAPTOP-14", Name: "Laptop 14in v2", UnitPrice: decimal.RequireFromString("849")}

	res, err = svc.Product(ctx, "LAPTOP-14")
	require.NoError(t, err)
	assert.Equal(t, "Laptop 14in v2", res.Value.Name)
	assert.Equal(t, 2, repo.productCalls)
}

func TestUnknownReferenceIsNotFoundWithoutError(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	res, err := svc.Product(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = svc.Product(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, 2, repo.productCalls, "not-found results are not cached")

	empty, err := svc.Tax(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, empty.Found)
	assert.Equal(t, 0, repo.taxCalls)
}

func TestRepositoryFailureIsReturned(t *testing.T) {
	repo := newMockRepo()
	repo.taxErr = errors.New("connection refused")
	svc := newTestService(t, repo)

	res, err := svc.Tax(context.Background(), "GST18")
	require.Error(t, err)
	assert.False(t, res.Found)
}

func TestCurrencyFallsBackToISO(t *testing.T) {
	svc := newTestService(t, newMockRepo())
	ctx := context.Background()

	inr, err := svc.Currency(ctx, "inr")
	require.NoError(t, err)
	require.True(t, inr.Found)
	assert.Equal(t, "₹", inr.Value.Symbol)

	jpy, err := svc.Currency(ctx, "JPY")
	require.NoError(t, err)
	require.True(t, jpy.Found)
	assert.Equal(t, "JPY", jpy.Value.Code)
	assert.Equal(t, int32(0), jpy.Value.Scale)

	eur, err := svc.Currency(ctx, "EUR")
	require.NoError(t, err)
	require.True(t, eur.Found)
	assert.Equal(t, int32(2), eur.Value.Scale)

	unknown, err := svc.Currency(ctx, "ZZZ")
	require.NoError(t, err)
	assert.False(t, unknown.Found)
}

func TestWarmLoadsEveryReference(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	stats, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, WarmStats{Products: 1, Taxes: 1, Currencies: 1}, stats)

	_, err = svc.Tax(ctx, "GST18")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.taxCalls)
}

func TestServiceWithoutRedis(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil)

	res, err := svc.Tax(context.Background(), "GST18")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.True(t, res.Value.Percent.Equal(decimal.NewFromInt(18)))

	_, err = svc.Tax(context.Background(), "GST18")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.taxCalls)
}
