package repository

import (
	"strings"

	"github.com/sangkips/quoteflow-api/pkg/pagination"
	"gorm.io/gorm"
)

// PricedIn restricts a products query to rows listing a price in currency
func PricedIn(currency string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("EXISTS (SELECT 1 FROM product_prices pp WHERE pp.product_id = products.id AND pp.currency = ?)", currency)
	}
}

// PricesIn preloads only the price rows of currency
func PricesIn(currency string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload("Prices", "currency = ?", currency)
	}
}

// Contains matches term case-insensitively against any of columns. LOWER
// LIKE is used instead of ILIKE so the same query runs on sqlite.
func Contains(term string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + strings.ToLower(term) + "%"
		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			clauses[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// Paginate applies offset and limit from params
func Paginate(params *pagination.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params == nil {
			params = pagination.DefaultPagination()
		}
		params.Validate()
		return db.Offset(params.Offset()).Limit(params.PerPage)
	}
}

// OrderBy applies a whitelisted sort column and direction
func OrderBy(sortBy, sortOrder string, allowed map[string]bool, fallback string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		column := fallback
		if allowed[sortBy] {
			column = sortBy
		}
		direction := "DESC"
		if strings.EqualFold(sortOrder, "asc") {
			direction = "ASC"
		}
		return db.Order(column + " " + direction)
	}
}
