package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/quoteflow-api/pkg/apperror"
	"github.com/sangkips/quoteflow-api/pkg/pagination"
)

// QuotationHandler serves saved quotations. Edits go through sessions.
type QuotationHandler struct {
	quotationService *service.QuotationService
}

// NewQuotationHandler creates a new quotation handler
func NewQuotationHandler(quotationService *service.QuotationService) *QuotationHandler {
	return &QuotationHandler{quotationService: quotationService}
}

// List handles listing quotations
// GET /api/v1/quotations
func (h *QuotationHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req request.QuotationFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	input := &service.ListQuotationsInput{
		Actor: actor,
		Pagination: &pagination.PaginationParams{
			Page:    req.Page,
			PerPage: req.PerPage,
		},
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != "" {
		status, err := enum.ParseQuotationStatus(req.Status)
		if err != nil {
			response.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}
	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			response.BadRequest(c, "Invalid customer ID")
			return
		}
		input.CustomerID = &customerID
	}

	result, err := h.quotationService.ListQuotations(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Quotations retrieved successfully", result)
}

// visible loads a quotation the actor may read. Agents only see their own.
func (h *QuotationHandler) visible(c *gin.Context, actor entity.Actor) (*entity.Quotation, bool) {
	id, ok := parseID(c, "id", "quotation")
	if !ok {
		return nil, false
	}
	quotation, err := h.quotationService.GetQuotation(c.Request.Context(), id)
	if err == nil && !actor.IsAdmin() && quotation.CreatedBy != actor.ID {
		err = apperror.NewNotFoundError("Quotation")
	}
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return quotation, true
}

// Get handles getting a single quotation with its lines
// GET /api/v1/quotations/:id
func (h *QuotationHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	quotation, ok := h.visible(c, actor)
	if !ok {
		return
	}
	response.OK(c, "Quotation retrieved successfully", quotation)
}

// History handles listing the status history of a quotation
// GET /api/v1/quotations/:id/history
func (h *QuotationHandler) History(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	quotation, ok := h.visible(c, actor)
	if !ok {
		return
	}

	history, err := h.quotationService.History(c.Request.Context(), quotation.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Quotation history retrieved successfully", history)
}
