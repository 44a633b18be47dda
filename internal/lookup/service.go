package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/pricing"
)

// Service resolves references through the cache and falls back to the
// repository. Unknown references yield a NotFound result, not an error;
// errors are reserved for infrastructure failures.
type Service struct {
	repo    Repository
	cache   *Cache
	metrics *observability.Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

// NewService wires the lookup service. cache, metrics and logger may be nil.
func NewService(repo Repository, cache *Cache, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Product resolves a catalog entry by product code.
func (s *Service) Product(ctx context.Context, ref string) (pricing.Lookup[pricing.CatalogEntry], error) {
	return fetch(ctx, s, KindProduct, strings.TrimSpace(ref), s.repo.GetProduct)
}

// Tax resolves a tax rate by tax code.
func (s *Service) Tax(ctx context.Context, ref string) (pricing.Lookup[pricing.TaxRate], error) {
	return fetch(ctx, s, KindTax, strings.TrimSpace(ref), s.repo.GetTax)
}

// Currency resolves a currency by ISO code. Codes missing from the
// currencies table fall back to ISO 4217 data.
func (s *Service) Currency(ctx context.Context, ref string) (pricing.Lookup[pricing.Currency], error) {
	return fetch(ctx, s, KindCurrency, pricing.NormalizeCurrencyRef(ref), s.loadCurrency)
}

func (s *Service) loadCurrency(ctx context.Context, code string) (pricing.Currency, error) {
	cur, err := s.repo.GetCurrency(ctx, code)
	if err == nil {
		return cur, nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrSchemaMissing) {
		return pricing.Currency{}, err
	}
	if iso, ok := isoCurrency(code); ok {
		return iso, nil
	}
	return pricing.Currency{}, ErrNotFound
}

// Warm loads every known reference so later lookups are served from Redis.
func (s *Service) Warm(ctx context.Context) (WarmStats, error) {
	var stats WarmStats

	products, err := s.repo.ListProductRefs(ctx)
	if err != nil {
		return stats, fmt.Errorf("lookup: warm products: %w", err)
	}
	for _, ref := range products {
		if _, err := s.Product(ctx, ref); err != nil {
			return stats, err
		}
		stats.Products++
	}

	taxes, err := s.repo.ListTaxRefs(ctx)
	if err != nil {
		return stats, fmt.Errorf("lookup: warm taxes: %w", err)
	}
	for _, ref := range taxes {
		if _, err := s.Tax(ctx, ref); err != nil {
			return stats, err
		}
		stats.Taxes++
	}

	currencies, err := s.repo.ListCurrencyRefs(ctx)
	if err != nil && !errors.Is(err, ErrSchemaMissing) {
		return stats, fmt.Errorf("lookup: warm currencies: %w", err)
	}
	for _, ref := range currencies {
		if _, err := s.Currency(ctx, ref); err != nil {
			return stats, err
		}
		stats.Currencies++
	}
	return stats, nil
}

// Invalidate drops every cached lookup by bumping the cache version.
func (s *Service) Invalidate(ctx context.Context) (int64, error) {
	return s.cache.Bump(ctx)
}

// Listen follows cache bumps published by other processes.
func (s *Service) Listen(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, "")
}

func fetch[T any](ctx context.Context, s *Service, kind, ref string, load func(context.Context, string) (T, error)) (pricing.Lookup[T], error) {
	if ref == "" {
		return pricing.NotFound[T](), nil
	}
	key, err := s.cache.BuildKey(ctx, "lookup", kind, ref)
	if err != nil {
		s.metrics.ObserveLookup(kind, observability.LookupError)
		return pricing.NotFound[T](), fmt.Errorf("lookup: %s cache key: %w", kind, err)
	}

	val, err, _ := singleflightFetch(ctx, &s.group, key, func(ctx context.Context) (any, error) {
		var out T
		hit, err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return load(ctx, ref)
		})
		if err != nil {
			return nil, err
		}
		if hit {
			s.metrics.ObserveLookup(kind, observability.LookupHit)
		} else {
			s.metrics.ObserveLookup(kind, observability.LookupMiss)
		}
		return out, nil
	})
	if errors.Is(err, ErrNotFound) {
		s.metrics.ObserveLookup(kind, observability.LookupNotFound)
		return pricing.NotFound[T](), nil
	}
	if err != nil {
		s.metrics.ObserveLookup(kind, observability.LookupError)
		s.logger.Warn("lookup failed", slog.String("kind", kind), slog.String("ref", ref), slog.Any("error", err))
		return pricing.NotFound[T](), err
	}
	return pricing.Found(val.(T)), nil
}
