package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/domain/cart"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/domain/enum"
	"github.com/sangkips/quoteflow-api/internal/domain/pricing"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
)

// SessionHandler exposes cart editing sessions. Every route acts on the
// session named by :id and answers with the refreshed session snapshot.
type SessionHandler struct {
	sessionService  *service.SessionService
	settingsService *service.SettingsService
}

// NewSessionHandler creates a new session handler. settingsService may be
// nil, in which case sessions start from the service defaults.
func NewSessionHandler(sessionService *service.SessionService, settingsService *service.SettingsService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, settingsService: settingsService}
}

// target resolves the actor and session ID of a request
func target(c *gin.Context) (entity.Actor, uuid.UUID, bool) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return entity.Actor{}, uuid.Nil, false
	}
	id, ok := parseID(c, "id", "session")
	if !ok {
		return entity.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

type viewFunc func(ctx context.Context, actor entity.Actor, id uuid.UUID) (*service.SessionView, error)

// simple adapts an intent that takes no body
func (h *SessionHandler) simple(message string, fn viewFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, id, ok := target(c)
		if !ok {
			return
		}
		view, err := fn(c.Request.Context(), actor, id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, message, view)
	}
}

// Open handles opening a session, optionally loading a saved quotation
// POST /api/v1/sessions
func (h *SessionHandler) Open(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req request.OpenSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	ctx := c.Request.Context()
	if h.settingsService != nil && req.QuotationID == nil && (req.Currency == "" || req.Limit == 0) {
		settings, err := h.settingsService.GetSettings(ctx, actor.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if req.Currency == "" {
			req.Currency = settings.Currency
		}
		if req.Limit == 0 {
			req.Limit = settings.PageLimit
		}
	}

	view, err := h.sessionService.Open(ctx, actor, service.OpenInput{
		Currency:    req.Currency,
		QuotationID: req.QuotationID,
		Limit:       req.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// A failed first load leaves the session open with an empty page
	if loaded, err := h.sessionService.LoadCatalog(ctx, actor, view.ID); err == nil {
		view = loaded
	}

	response.Created(c, "Session opened successfully", view)
}

// Get handles reading a session snapshot
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	h.simple("Session retrieved successfully", h.sessionService.View)(c)
}

// Close handles discarding a session
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Close(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	if err := h.sessionService.Close(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// LoadCatalog handles reloading the current catalog page
// POST /api/v1/sessions/:id/catalog
func (h *SessionHandler) LoadCatalog(c *gin.Context) {
	h.simple("Catalog loaded successfully", h.sessionService.LoadCatalog)(c)
}

// SetCategory handles selecting a category
// PUT /api/v1/sessions/:id/filters/category
func (h *SessionHandler) SetCategory(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	view, err := h.sessionService.SetCategory(c.Request.Context(), actor, id, req.Category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Category updated successfully", view)
}

// SetFacet handles setting a dependent facet
// PUT /api/v1/sessions/:id/filters/facet
func (h *SessionHandler) SetFacet(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.FacetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	facet, ok := cart.ParseFacet(req.Facet)
	if !ok {
		response.BadRequest(c, "Invalid facet")
		return
	}
	view, err := h.sessionService.SetFacet(c.Request.Context(), actor, id, facet, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Filter updated successfully", view)
}

// ClearFilters handles clearing every filter
// DELETE /api/v1/sessions/:id/filters
func (h *SessionHandler) ClearFilters(c *gin.Context) {
	h.simple("Filters cleared successfully", h.sessionService.ClearFilters)(c)
}

// SetSearch handles setting or clearing the search term
// PUT /api/v1/sessions/:id/search
func (h *SessionHandler) SetSearch(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	view, err := h.sessionService.SetSearch(c.Request.Context(), actor, id, req.Term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Search updated successfully", view)
}

// GoToPage handles moving to a catalog page
// PUT /api/v1/sessions/:id/page
func (h *SessionHandler) GoToPage(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	view, err := h.sessionService.GoToPage(c.Request.Context(), actor, id, req.Page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Page retrieved successfully", view)
}

// SetLimit handles changing the page size
// PUT /api/v1/sessions/:id/limit
func (h *SessionHandler) SetLimit(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.LimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	view, err := h.sessionService.SetLimit(c.Request.Context(), actor, id, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Page size updated successfully", view)
}

// Select handles adding an item to the cart
// POST /api/v1/sessions/:id/items
func (h *SessionHandler) Select(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.SelectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	view, err := h.sessionService.Select(c.Request.Context(), actor, id, req.ItemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item added successfully", view)
}

// Deselect handles removing an item from the cart
// DELETE /api/v1/sessions/:id/items/:itemId
func (h *SessionHandler) Deselect(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId", "item")
	if !ok {
		return
	}
	view, err := h.sessionService.Deselect(c.Request.Context(), actor, id, itemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item removed successfully", view)
}

// UpdateQuantity handles adjusting or setting a line quantity
// PATCH /api/v1/sessions/:id/items/:itemId
func (h *SessionHandler) UpdateQuantity(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId", "item")
	if !ok {
		return
	}
	var req request.QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	var (
		view *service.SessionView
		err  error
	)
	switch {
	case req.Quantity != nil:
		view, err = h.sessionService.SetQuantity(ctx, actor, id, itemID, *req.Quantity)
	case req.Delta != nil:
		view, err = h.sessionService.AdjustQuantity(ctx, actor, id, itemID, *req.Delta)
	default:
		response.BadRequest(c, "Either quantity or delta is required")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Quantity updated successfully", view)
}

func currencyResponse(c *gin.Context, result *service.CurrencyResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "Currency unchanged"
	switch result.Decision {
	case cart.DecisionApplied:
		message = "Prices updated to " + result.Session.Currency
	case cart.DecisionStaged:
		message = "Changing prices will clear the cart. Confirm to continue"
	}
	if result.CatalogError != nil {
		message += ". Catalog could not be loaded, reload to retry"
	}
	response.OK(c, message, result)
}

// RequestCurrencyChange handles a currency change request
// POST /api/v1/sessions/:id/currency
func (h *SessionHandler) RequestCurrencyChange(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.CurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	result, err := h.sessionService.RequestCurrencyChange(c.Request.Context(), actor, id, req.Currency)
	currencyResponse(c, result, err)
}

// RequestRefresh handles a price refresh request
// POST /api/v1/sessions/:id/refresh
func (h *SessionHandler) RequestRefresh(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	result, err := h.sessionService.RequestRefresh(c.Request.Context(), actor, id)
	currencyResponse(c, result, err)
}

// ConfirmPending handles confirming a staged currency change
// POST /api/v1/sessions/:id/currency/confirm
func (h *SessionHandler) ConfirmPending(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	result, err := h.sessionService.ConfirmPending(c.Request.Context(), actor, id)
	currencyResponse(c, result, err)
}

// CancelPending handles cancelling a staged currency change
// POST /api/v1/sessions/:id/currency/cancel
func (h *SessionHandler) CancelPending(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	result, err := h.sessionService.CancelPending(c.Request.Context(), actor, id)
	currencyResponse(c, result, err)
}

// SetDiscount handles editing the cart discount
// PUT /api/v1/sessions/:id/discount
func (h *SessionHandler) SetDiscount(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	discountType, err := enum.ParseDiscountType(req.Type)
	if err != nil {
		response.BadRequest(c, "Invalid discount type")
		return
	}
	view, err := h.sessionService.SetDiscount(c.Request.Context(), actor, id, pricing.DiscountPolicy{
		Type:  discountType,
		Value: req.Value,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Discount updated successfully", view)
}

// SaveDiscount handles persisting the discount of a saved quotation
// POST /api/v1/sessions/:id/discount/save
func (h *SessionHandler) SaveDiscount(c *gin.Context) {
	h.simple("Discount saved successfully", h.sessionService.SaveDiscount)(c)
}

// Save handles saving the cart as a quotation
// POST /api/v1/sessions/:id/save
func (h *SessionHandler) Save(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.SaveQuotationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}
	view, err := h.sessionService.SaveQuotation(c.Request.Context(), actor, id, service.SaveInput{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Note:         req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Quotation saved successfully", view)
}

type transitionFunc func(ctx context.Context, actor entity.Actor, id uuid.UUID) (*service.TransitionView, error)

func transitionResponse(c *gin.Context, result *service.TransitionView, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result.Message, result)
}

// action adapts a named workflow action such as accept or approve
func (h *SessionHandler) action(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, id, ok := target(c)
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), actor, id)
		transitionResponse(c, result, err)
	}
}

// Actions maps workflow action paths to their handlers
// POST /api/v1/sessions/:id/{accept,reject,send-for-review,approve,reject-review,confirm}
func (h *SessionHandler) Actions() map[string]gin.HandlerFunc {
	return map[string]gin.HandlerFunc{
		"accept":          h.action(h.sessionService.Accept),
		"reject":          h.action(h.sessionService.Reject),
		"send-for-review": h.action(h.sessionService.SendForReview),
		"approve":         h.action(h.sessionService.Approve),
		"reject-review":   h.action(h.sessionService.RejectReview),
		"confirm":         h.action(h.sessionService.Confirm),
	}
}

// Transition handles a transition to an explicit target status
// POST /api/v1/sessions/:id/transitions
func (h *SessionHandler) Transition(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	status, err := enum.ParseQuotationStatus(req.Status)
	if err != nil {
		response.BadRequest(c, "Invalid status")
		return
	}
	result, err := h.sessionService.Transition(c.Request.Context(), actor, id, status)
	transitionResponse(c, result, err)
}

// DeleteQuotation handles deleting a rejected quotation
// DELETE /api/v1/sessions/:id/quotation
func (h *SessionHandler) DeleteQuotation(c *gin.Context) {
	h.simple("Quotation deleted successfully", h.sessionService.DeleteQuotation)(c)
}

// CreateInvoice handles issuing an invoice for the session's quotation
// POST /api/v1/sessions/:id/invoice
func (h *SessionHandler) CreateInvoice(c *gin.Context) {
	actor, id, ok := target(c)
	if !ok {
		return
	}
	var req request.InvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}
	result, err := h.sessionService.CreateInvoice(c.Request.Context(), actor, id, service.InvoiceFields{
		DueDate: req.DueDate,
		Notes:   req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result.Message, result)
}
