package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/quoteflow-api/pkg/utils"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRoles = "user_roles"
)

// AuthMiddleware creates a JWT authentication middleware
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRoles, claims.Roles)

		c.Next()
	}
}

// CurrentActor builds the actor of an authenticated request
func CurrentActor(c *gin.Context) (entity.Actor, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return entity.Actor{}, false
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return entity.Actor{}, false
	}
	roles, _ := c.Get(ContextUserRoles)
	list, _ := roles.([]string)
	return entity.Actor{ID: id, Roles: list}, true
}

// RequireRole creates a middleware that requires one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}
		if !actor.HasRole(roles...) {
			response.Forbidden(c, "Insufficient role privileges")
			c.Abort()
			return
		}
		c.Next()
	}
}
