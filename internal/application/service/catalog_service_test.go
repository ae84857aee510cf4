package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/repository"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
)

func TestCatalogService_FetchCatalogPage(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	page, err := b.catalog.FetchCatalogPage(ctx, CatalogQuery{
		Currency: "aed",
		Filters:  cart.FilterCriteria{Category: "brakes"},
		Page:     1,
		Limit:    2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.Pagination.Total != 3 || !page.Pagination.HasNext {
		t.Errorf("page items=%d pagination=%+v", len(page.Items), page.Pagination)
	}
	for _, it := range page.Items {
		if it.Currency != "AED" || it.UnitPrice.IsZero() {
			t.Errorf("item %s priced %s %s", it.Code, it.UnitPrice, it.Currency)
		}
	}
	if got := page.Facets[cart.FacetBrand]; !reflect.DeepEqual(got, []string{"ATE", "Bosch", "Brembo"}) {
		t.Errorf("brand facet = %v", got)
	}
	if got := page.Facets[cart.FacetCategory]; len(got) != 4 {
		t.Errorf("category facet = %v, want every category", got)
	}
}

func TestCatalogService_FetchCatalogPageRejectsBadYear(t *testing.T) {
	b := newBackend(t)
	_, err := b.catalog.FetchCatalogPage(context.Background(), CatalogQuery{
		Currency: "USD",
		Filters:  cart.FilterCriteria{Category: "tyres", Year: "twenty"},
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestCatalogService_FetchCatalogAll(t *testing.T) {
	b := newBackend(t)
	items, err := b.catalog.FetchCatalogAll(context.Background(), "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 10 {
		t.Errorf("items = %d, want 10", len(items))
	}
}

func TestCatalogService_ListCurrenciesIsCached(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	first, err := b.catalog.ListCurrencies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("currencies = %d, want 3", len(first))
	}

	if err := b.db.Model(&entity.Currency{}).Where("code = ?", "EUR").Update("active", false).Error; err != nil {
		t.Fatal(err)
	}
	cached, _ := b.catalog.ListCurrencies(ctx)
	if len(cached) != 3 {
		t.Errorf("cached currencies = %d, want 3", len(cached))
	}

	if err := b.catalog.InvalidateCurrencies(ctx); err != nil {
		t.Fatal(err)
	}
	fresh, _ := b.catalog.ListCurrencies(ctx)
	if len(fresh) != 2 {
		t.Errorf("currencies after invalidate = %d, want 2", len(fresh))
	}
}

func TestCatalogService_UpsertCurrency(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	b.catalog.ListCurrencies(ctx)

	if _, err := b.catalog.UpsertCurrency(ctx, &UpsertCurrencyInput{Code: "gbp", Name: "Pound Sterling", Symbol: "£", Active: true}); err != nil {
		t.Fatal(err)
	}
	currencies, _ := b.catalog.ListCurrencies(ctx)
	if len(currencies) != 4 {
		t.Errorf("currencies = %d, want 4 after upsert", len(currencies))
	}
	if _, err := b.catalog.UpsertCurrency(ctx, &UpsertCurrencyInput{Code: "pounds", Name: "x"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("invalid code error = %v", err)
	}
}

func TestSettingsService_DefaultsAndUpdate(t *testing.T) {
	b := newBackend(t)
	svc := NewSettingsService(repository.NewSettingsRepository(b.db), b.catalog, "usd", 0)
	ctx := context.Background()
	user := uuid.New()

	got, err := svc.GetSettings(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if got.Currency != "USD" || got.PageLimit != 15 || got.ID != uuid.Nil {
		t.Errorf("defaults = %+v", got)
	}

	tests := []struct {
		name     string
		currency string
		limit    int
	}{
		{"bad code", "euro", 25},
		{"inactive currency", "GBP", 25},
		{"bad limit", "EUR", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateSettings(ctx, &UpdateSettingsInput{UserID: user, Currency: tt.currency, PageLimit: tt.limit})
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	if _, err := svc.UpdateSettings(ctx, &UpdateSettingsInput{UserID: user, Currency: "eur", PageLimit: 25}); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdateSettings(ctx, &UpdateSettingsInput{UserID: user, Currency: "AED", PageLimit: 50})
	if err != nil {
		t.Fatal(err)
	}
	got, _ = svc.GetSettings(ctx, user)
	if got.ID != updated.ID || got.Currency != "AED" || got.PageLimit != 50 {
		t.Errorf("stored = %+v", got)
	}
}
