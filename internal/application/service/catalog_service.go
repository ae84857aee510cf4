package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/cache"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
	"go.uber.org/zap"
)

const currenciesCacheKey = "catalog:currencies"

// CatalogService serves the priced catalog. It implements CatalogClient and
// CurrencyDirectory for in-process sessions.
type CatalogService struct {
	productRepo  repository.ProductRepository
	currencyRepo repository.CurrencyRepository
	cache        cache.Cache
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	productRepo repository.ProductRepository,
	currencyRepo repository.CurrencyRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *CatalogService {
	if c == nil {
		c = cache.NewMemory()
	}
	return &CatalogService{
		productRepo:  productRepo,
		currencyRepo: currencyRepo,
		cache:        c,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

var (
	_ CatalogClient     = (*CatalogService)(nil)
	_ CurrencyDirectory = (*CatalogService)(nil)
)

// toItem flattens a product into a cart item priced in currency. Products
// without a price in currency are skipped by the repository.
func toItem(p entity.Product, currency string) cart.Item {
	price, _ := p.PriceIn(currency)
	return cart.Item{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Category:  p.Category,
		Brand:     p.Brand,
		Model:     p.Model,
		Year:      p.Year,
		Color:     p.Color,
		Stock:     p.Quantity,
		Currency:  currency,
		UnitPrice: price,
	}
}

func toItems(products []entity.Product, currency string) []cart.Item {
	items := make([]cart.Item, 0, len(products))
	for _, p := range products {
		items = append(items, toItem(p, currency))
	}
	return items
}

// FetchCatalogPage returns one filtered page of the catalog
func (s *CatalogService) FetchCatalogPage(ctx context.Context, query CatalogQuery) (*CatalogPage, error) {
	currency := cart.NormalizeCurrency(query.Currency)
	if err := cart.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	year := 0
	if query.Filters.Year != "" {
		y, err := strconv.Atoi(query.Filters.Year)
		if err != nil {
			return nil, apperror.NewFieldValidationError("year", "must be a number")
		}
		year = y
	}

	params := &pagination.PaginationParams{Page: query.Page, PerPage: query.Limit}
	params.Validate()

	products, total, err := s.productRepo.List(ctx, &repository.ProductFilterParams{
		Pagination: params,
		Currency:   currency,
		Category:   query.Filters.Category,
		Brand:      query.Filters.Brand,
		Model:      query.Filters.Model,
		Year:       year,
		Color:      query.Filters.Color,
		Search:     query.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	facets, err := s.Facets(ctx, currency, query.Filters.Category)
	if err != nil {
		return nil, err
	}

	return &CatalogPage{
		Items:      toItems(products, currency),
		Facets:     facets,
		Pagination: pagination.NewPagination(params.Page, params.PerPage, total),
	}, nil
}

// FetchCatalogAll returns every item priced in currency
func (s *CatalogService) FetchCatalogAll(ctx context.Context, currency string) ([]cart.Item, error) {
	currency = cart.NormalizeCurrency(currency)
	if err := cart.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListAll(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return toItems(products, currency), nil
}

// Facets returns the distinct values of every facet. Dependent facets only
// list values found under category.
func (s *CatalogService) Facets(ctx context.Context, currency, category string) (cart.FacetSummary, error) {
	summary := make(cart.FacetSummary, len(cart.Facets))
	for _, f := range cart.Facets {
		values, err := s.productRepo.DistinctValues(ctx, currency, string(f), category)
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", f, err)
		}
		if values == nil {
			values = []string{}
		}
		summary[f] = values
	}
	return summary, nil
}

// ListCurrencies returns the active currencies, served from cache when warm
func (s *CatalogService) ListCurrencies(ctx context.Context) ([]entity.Currency, error) {
	if b, err := s.cache.Get(ctx, currenciesCacheKey); err == nil {
		var cached []entity.Currency
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("discarding undecodable currency cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("currency cache unavailable", zap.Error(err))
	}

	currencies, err := s.currencyRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	if b, err := json.Marshal(currencies); err == nil {
		if err := s.cache.Set(ctx, currenciesCacheKey, b, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache currencies", zap.Error(err))
		}
	}
	return currencies, nil
}

// InvalidateCurrencies drops the cached currency list
func (s *CatalogService) InvalidateCurrencies(ctx context.Context) error {
	return s.cache.Delete(ctx, currenciesCacheKey)
}

// UpsertCurrencyInput represents a currency definition
type UpsertCurrencyInput struct {
	Code   string
	Name   string
	Symbol string
	Active bool
}

// UpsertCurrency creates or updates a pricing currency and drops the cached
// currency list
func (s *CatalogService) UpsertCurrency(ctx context.Context, input *UpsertCurrencyInput) (*entity.Currency, error) {
	code := cart.NormalizeCurrency(input.Code)
	if err := cart.ValidateCurrency(code); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, apperror.NewFieldValidationError("name", "is required")
	}

	currency := &entity.Currency{Code: code, Name: input.Name, Symbol: input.Symbol, Active: input.Active}
	if err := s.currencyRepo.Upsert(ctx, currency); err != nil {
		return nil, fmt.Errorf("upsert currency: %w", err)
	}
	if err := s.InvalidateCurrencies(ctx); err != nil {
		s.logger.Warn("failed to invalidate currency cache", zap.String("currency", code), zap.Error(err))
	}
	s.logger.Info("currency saved", zap.String("currency", code), zap.Bool("active", input.Active))
	return currency, nil
}
