// Package cart holds the client session state of a quotation cart: which
// catalog items are selected, which are visible under the active facets, and
// which pricing currency is in force.
package cart

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a catalog item priced in one currency
type Item struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Year      int             `json:"year"`
	Color     string          `json:"color"`
	Stock     int             `json:"stock"`
	Currency  string          `json:"currency"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Facet is a filterable item attribute
type Facet string

const (
	FacetCategory Facet = "category"
	FacetBrand    Facet = "brand"
	FacetModel    Facet = "model"
	FacetYear     Facet = "year"
	FacetColor    Facet = "color"
)

// Facets lists every facet, category first
var Facets = []Facet{FacetCategory, FacetBrand, FacetModel, FacetYear, FacetColor}

// ParseFacet validates a facet name
func ParseFacet(s string) (Facet, bool) {
	for _, f := range Facets {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// FacetValue returns the item's value for facet
func (i Item) FacetValue(f Facet) string {
	switch f {
	case FacetCategory:
		return i.Category
	case FacetBrand:
		return i.Brand
	case FacetModel:
		return i.Model
	case FacetYear:
		if i.Year == 0 {
			return ""
		}
		return strconv.Itoa(i.Year)
	case FacetColor:
		return i.Color
	}
	return ""
}
