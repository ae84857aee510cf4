package database

import (
	"fmt"

	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCurrencies are the pricing currencies available out of the box
var DefaultCurrencies = []entity.Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$", Active: true},
	{Code: "AED", Name: "UAE Dirham", Symbol: "د.إ", Active: true},
	{Code: "EUR", Name: "Euro", Symbol: "€", Active: true},
}

type sampleProduct struct {
	code, name, category, brand, model, color string
	year, stock                               int
	usd                                       string
}

var sampleCatalog = []sampleProduct{
	{"TYR-MIC-PS5", "Pilot Sport 5 225/45R17", "tyres", "Michelin", "Pilot Sport 5", "black", 2024, 40, "155.00"},
	{"TYR-BRI-T005", "Turanza T005 205/55R16", "tyres", "Bridgestone", "Turanza T005", "black", 2023, 55, "120.00"},
	{"TYR-CON-EC6", "EcoContact 6 195/65R15", "tyres", "Continental", "EcoContact 6", "black", 2022, 32, "98.50"},
	{"BRK-BRE-GT", "GT Brake Disc Front", "brakes", "Brembo", "GT", "red", 2024, 18, "310.00"},
	{"BRK-BOS-QC", "QuietCast Brake Pads", "brakes", "Bosch", "QuietCast", "grey", 2023, 70, "45.00"},
	{"BRK-ATE-CR", "Ceramic Brake Pads", "brakes", "ATE", "Ceramic", "grey", 2022, 64, "52.75"},
	{"BAT-VAR-E44", "Silver Dynamic E44 77Ah", "batteries", "Varta", "Silver Dynamic", "silver", 2024, 25, "189.00"},
	{"BAT-BOS-S5", "S5 Battery 63Ah", "batteries", "Bosch", "S5", "black", 2023, 30, "165.00"},
	{"OIL-MOB-1", "Mobil 1 ESP 5W-30 5L", "lubricants", "Mobil", "ESP 5W-30", "", 2024, 120, "48.90"},
	{"OIL-CAS-EDGE", "Castrol EDGE 0W-20 4L", "lubricants", "Castrol", "EDGE 0W-20", "", 2023, 90, "44.20"},
}

// fixed conversion used only to give the sample catalog prices in every
// default currency
var sampleRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"AED": decimal.RequireFromString("3.6725"),
	"EUR": decimal.RequireFromString("0.92"),
}

// SeedDefaultData seeds currencies and, on an empty catalog, the sample products
func SeedDefaultData(db *gorm.DB, log *zap.Logger) error {
	for i := range DefaultCurrencies {
		c := DefaultCurrencies[i]
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error
		if err != nil {
			return fmt.Errorf("seed currency %s: %w", c.Code, err)
		}
	}

	var count int64
	if err := db.Model(&entity.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		log.Debug("catalog already seeded", zap.Int64("products", count))
		return nil
	}

	products := make([]entity.Product, 0, len(sampleCatalog))
	for _, s := range sampleCatalog {
		usd := decimal.RequireFromString(s.usd)
		prices := make([]entity.ProductPrice, 0, len(sampleRates))
		for _, c := range DefaultCurrencies {
			prices = append(prices, entity.ProductPrice{
				Currency:  c.Code,
				UnitPrice: usd.Mul(sampleRates[c.Code]).Round(2),
			})
		}
		products = append(products, entity.Product{
			Code:     s.code,
			Name:     s.name,
			Category: s.category,
			Brand:    s.brand,
			Model:    s.model,
			Year:     s.year,
			Color:    s.color,
			Quantity: s.stock,
			Prices:   prices,
		})
	}
	if err := db.Create(&products).Error; err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	log.Info("seeded default data",
		zap.Int("currencies", len(DefaultCurrencies)),
		zap.Int("products", len(products)))
	return nil
}
