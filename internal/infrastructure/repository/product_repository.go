package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/quoteflow-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var facetColumns = map[string]bool{
	"category": true,
	"brand":    true,
	"model":    true,
	"year":     true,
	"color":    true,
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) domainRepo.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) CreateBatch(ctx context.Context, products []entity.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&products).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).
		Preload("Prices").
		First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

// GetByIDs retrieves multiple products by their IDs in a single query
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID, currency string) ([]entity.Product, error) {
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}
	var products []entity.Product
	err := r.db.WithContext(ctx).
		Scopes(PricesIn(currency)).
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *productRepository) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).Preload("Prices").First(&product, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &product, err
}

func (r *productRepository) filtered(ctx context.Context, params *domainRepo.ProductFilterParams) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.Product{}).Scopes(PricedIn(params.Currency))

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Brand != "" {
		query = query.Where("brand = ?", params.Brand)
	}
	if params.Model != "" {
		query = query.Where("model = ?", params.Model)
	}
	if params.Year != 0 {
		query = query.Where("year = ?", params.Year)
	}
	if params.Color != "" {
		query = query.Where("color = ?", params.Color)
	}
	return query.Scopes(Contains(params.Search, "name", "code", "brand", "model"))
}

func (r *productRepository) List(ctx context.Context, params *domainRepo.ProductFilterParams) ([]entity.Product, int64, error) {
	var products []entity.Product
	var total int64

	if err := r.filtered(ctx, params).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.filtered(ctx, params).
		Scopes(PricesIn(params.Currency), Paginate(params.Pagination)).
		Order("name ASC").Order("code ASC").
		Find(&products).Error

	return products, total, err
}

func (r *productRepository) ListAll(ctx context.Context, currency string) ([]entity.Product, error) {
	var products []entity.Product
	err := r.db.WithContext(ctx).
		Scopes(PricedIn(currency), PricesIn(currency)).
		Order("name ASC").Order("code ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepository) DistinctValues(ctx context.Context, currency, column, category string) ([]string, error) {
	if !facetColumns[column] {
		return nil, fmt.Errorf("unknown facet column %q", column)
	}
	query := r.db.WithContext(ctx).Model(&entity.Product{}).
		Scopes(PricedIn(currency)).
		Distinct()
	if category != "" && column != "category" {
		query = query.Where("category = ?", category)
	}

	var values []string
	if column == "year" {
		var years []int
		err := query.Where("year > 0").Order("year ASC").Pluck("year", &years).Error
		for _, y := range years {
			values = append(values, fmt.Sprint(y))
		}
		return values, err
	}
	err := query.Where(column+" <> ''").Order(column + " ASC").Pluck(column, &values).Error
	return values, err
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Product{}).Count(&count).Error
	return count, err
}

type currencyRepository struct {
	db *gorm.DB
}

// NewCurrencyRepository creates a new currency repository
func NewCurrencyRepository(db *gorm.DB) domainRepo.CurrencyRepository {
	return &currencyRepository{db: db}
}

func (r *currencyRepository) ListActive(ctx context.Context) ([]entity.Currency, error) {
	var currencies []entity.Currency
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("code ASC").Find(&currencies).Error
	return currencies, err
}

func (r *currencyRepository) GetByCode(ctx context.Context, code string) (*entity.Currency, error) {
	var currency entity.Currency
	err := r.db.WithContext(ctx).First(&currency, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &currency, err
}

func (r *currencyRepository) Upsert(ctx context.Context, currency *entity.Currency) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "active"}),
	}).Create(currency).Error
}
