package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenSessionRequest opens an empty cart or loads a saved quotation
type OpenSessionRequest struct {
	Currency    string     `json:"currency" binding:"omitempty,len=3"`
	QuotationID *uuid.UUID `json:"quotation_id"`
	Limit       int        `json:"limit" binding:"omitempty,oneof=10 15 25 50 100"`
}

// SelectItemRequest adds a catalog item to the cart
type SelectItemRequest struct {
	ItemID uuid.UUID `json:"item_id" binding:"required"`
}

// QuantityRequest either adjusts the quantity by Delta or sets it to Quantity
type QuantityRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity" binding:"omitempty,min=1"`
}

// CategoryRequest selects a category. An empty category clears it.
type CategoryRequest struct {
	Category string `json:"category"`
}

// FacetRequest sets a dependent facet. An empty value clears it.
type FacetRequest struct {
	Facet string `json:"facet" binding:"required,oneof=brand model year color"`
	Value string `json:"value"`
}

// SearchRequest sets the free-text search. An empty term leaves search mode.
type SearchRequest struct {
	Term string `json:"term" binding:"max=100"`
}

// PageRequest moves to a page
type PageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// LimitRequest changes the page size. Sizes outside the allowed set are
// ignored by the session.
type LimitRequest struct {
	Limit int `json:"limit" binding:"required"`
}

// CurrencyRequest asks for a pricing currency change
type CurrencyRequest struct {
	Currency string `json:"currency" binding:"required,len=3"`
}

// DiscountRequest sets the cart discount
type DiscountRequest struct {
	Type  string          `json:"type" binding:"required,oneof=amount percentage"`
	Value decimal.Decimal `json:"value"`
}

// SaveQuotationRequest persists the cart as a quotation
type SaveQuotationRequest struct {
	CustomerID   *uuid.UUID `json:"customer_id"`
	CustomerName string     `json:"customer_name" binding:"max=255"`
	Note         *string    `json:"note"`
}

// TransitionRequest moves the quotation to Status
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// InvoiceRequest issues an invoice for the session's quotation
type InvoiceRequest struct {
	DueDate *time.Time `json:"due_date"`
	Notes   *string    `json:"notes"`
}

// UpdateSettingsRequest sets the user's quotation defaults
type UpdateSettingsRequest struct {
	Currency  string `json:"currency" binding:"required,len=3"`
	PageLimit int    `json:"page_limit" binding:"required,oneof=10 15 25 50 100"`
}
