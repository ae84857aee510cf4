package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// CatalogHandler serves priced catalog pages and pricing currencies
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// Products handles fetching one page of the catalog priced in a currency
// GET /api/v1/catalog/products
func (h *CatalogHandler) Products(c *gin.Context) {
	var req request.CatalogFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &pagination.PaginationParams{Page: req.Page, PerPage: req.PerPage}
	params.Validate()

	page, err := h.catalogService.FetchCatalogPage(c.Request.Context(), service.CatalogQuery{
		Currency: req.Currency,
		Filters: cart.FilterCriteria{
			Category: req.Category,
			Brand:    req.Brand,
			Model:    req.Model,
			Year:     req.Year,
			Color:    req.Color,
		},
		Search: req.Search,
		Page:   params.Page,
		Limit:  params.PerPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Catalog retrieved successfully", page)
}

// Currencies handles listing the active pricing currencies
// GET /api/v1/catalog/currencies
func (h *CatalogHandler) Currencies(c *gin.Context) {
	currencies, err := h.catalogService.ListCurrencies(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Currencies retrieved successfully", currencies)
}

// UpsertCurrency handles creating or updating a pricing currency
// PUT /api/v1/catalog/currencies/:code
func (h *CatalogHandler) UpsertCurrency(c *gin.Context) {
	var req request.UpsertCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	currency, err := h.catalogService.UpsertCurrency(c.Request.Context(), &service.UpsertCurrencyInput{
		Code:   c.Param("code"),
		Name:   req.Name,
		Symbol: req.Symbol,
		Active: active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Currency saved successfully", currency)
}
