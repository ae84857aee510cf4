package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog item. Its facet fields drive catalog filtering.
type Product struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Code      string         `gorm:"size:100;unique;not null" json:"code"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Category  string         `gorm:"size:100;index" json:"category"`
	Brand     string         `gorm:"size:100;index" json:"brand"`
	Model     string         `gorm:"size:100" json:"model"`
	Year      int            `json:"year"`
	Color     string         `gorm:"size:50" json:"color"`
	Quantity  int            `gorm:"default:0" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Prices []ProductPrice `gorm:"foreignKey:ProductID" json:"prices,omitempty"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// PriceIn returns the product's unit price in currency, if one is listed
func (p *Product) PriceIn(currency string) (decimal.Decimal, bool) {
	for _, price := range p.Prices {
		if price.Currency == currency {
			return price.UnitPrice, true
		}
	}
	return decimal.Zero, false
}

// ProductPrice is the unit price of a product in one currency
type ProductPrice struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_product_currency" json:"product_id"`
	Currency  string          `gorm:"size:3;not null;uniqueIndex:idx_product_currency" json:"currency"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new price
func (p *ProductPrice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ProductPrice model
func (ProductPrice) TableName() string {
	return "product_prices"
}

// Currency is a pricing currency the catalog can be browsed in
type Currency struct {
	Code   string `gorm:"size:3;primary_key" json:"code"`
	Name   string `gorm:"size:100;not null" json:"name"`
	Symbol string `gorm:"size:10" json:"symbol"`
	Active bool   `gorm:"not null" json:"active"`
}

// TableName returns the table name for the Currency model
func (Currency) TableName() string {
	return "currencies"
}
