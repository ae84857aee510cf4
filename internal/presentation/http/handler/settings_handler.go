package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
)

// SettingsHandler handles settings-related HTTP requests
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings handles retrieving the user's quotation defaults
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings retrieved successfully", settings)
}

// UpdateSettings handles updating the user's quotation defaults
// PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req request.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &service.UpdateSettingsInput{
		UserID:    actor.ID,
		Currency:  req.Currency,
		PageLimit: req.PageLimit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings updated successfully", settings)
}
