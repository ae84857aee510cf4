package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// CustomerHandler handles customer-related HTTP requests
type CustomerHandler struct {
	customerService *service.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// List handles listing customers
// GET /api/v1/customers
func (h *CustomerHandler) List(c *gin.Context) {
	params := &pagination.PaginationParams{
		Page:    parsePositiveInt(c.DefaultQuery("page", "1")),
		PerPage: parseNonNegativeInt(c.DefaultQuery("per_page", "15")),
	}

	result, err := h.customerService.ListCustomers(c.Request.Context(), params, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Customers retrieved successfully", result)
}

// Get handles getting a single customer
// GET /api/v1/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Customer retrieved successfully", customer)
}

// Create handles creating a customer
// POST /api/v1/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req request.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), &service.CreateCustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Customer created successfully", customer)
}
