package request

// CatalogFilterRequest represents catalog page query parameters
type CatalogFilterRequest struct {
	Currency string `form:"currency" binding:"required,len=3"`
	Category string `form:"category"`
	Brand    string `form:"brand"`
	Model    string `form:"model"`
	Year     string `form:"year"`
	Color    string `form:"color"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PerPage  int    `form:"per_page"`
}

// UpsertCurrencyRequest creates or updates a pricing currency
type UpsertCurrencyRequest struct {
	Name   string `json:"name" binding:"required,max=100"`
	Symbol string `json:"symbol" binding:"max=10"`
	Active *bool  `json:"active"`
}

// QuotationFilterRequest represents quotation list query parameters
type QuotationFilterRequest struct {
	Search     string `form:"search"`
	Status     string `form:"status"`
	CustomerID string `form:"customer_id"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
	Page       int    `form:"page"`
	PerPage    int    `form:"per_page"`
}

// CreateCustomerRequest represents a customer creation request
type CreateCustomerRequest struct {
	Name    string  `json:"name" binding:"required,min=2,max=255"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Address *string `json:"address"`
}
