package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/middleware"
)

// actorOrAbort returns the authenticated actor or writes a 401
func actorOrAbort(c *gin.Context) (entity.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return entity.Actor{}, false
	}
	return actor, true
}

// parseID parses the named path parameter as a UUID or writes a 400
func parseID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePositiveInt parses a string as a positive integer, returning 1 if invalid
func parsePositiveInt(s string) int {
	var result int
	if _, err := fmt.Sscanf(s, "%d", &result); err != nil || result < 1 {
		return 1
	}
	return result
}

// parseNonNegativeInt parses a string as a non-negative integer, returning 0 if invalid
func parseNonNegativeInt(s string) int {
	var result int
	if _, err := fmt.Sscanf(s, "%d", &result); err != nil || result < 0 {
		return 0
	}
	return result
}
