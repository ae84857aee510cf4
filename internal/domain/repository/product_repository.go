package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// ProductRepository defines the interface for catalog data operations.
// Every listing returns only products priced in the requested currency, with
// Prices preloaded for that currency alone.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	CreateBatch(ctx context.Context, products []entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	// GetByIDs retrieves multiple products by their IDs in a single query
	GetByIDs(ctx context.Context, ids []uuid.UUID, currency string) ([]entity.Product, error)
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	List(ctx context.Context, params *ProductFilterParams) ([]entity.Product, int64, error)
	ListAll(ctx context.Context, currency string) ([]entity.Product, error)
	// DistinctValues returns the sorted distinct values of a facet column,
	// restricted to category when it is not empty
	DistinctValues(ctx context.Context, currency, column, category string) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// ProductFilterParams contains filtering parameters for product queries
type ProductFilterParams struct {
	Pagination *pagination.PaginationParams
	Currency   string
	Category   string
	Brand      string
	Model      string
	Year       int
	Color      string
	Search     string
}

// CurrencyRepository defines the interface for currency data operations
type CurrencyRepository interface {
	ListActive(ctx context.Context) ([]entity.Currency, error)
	GetByCode(ctx context.Context, code string) (*entity.Currency, error)
	Upsert(ctx context.Context, currency *entity.Currency) error
}
