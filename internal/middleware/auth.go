package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/internal/utils"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// UserLookup resolves the user a token was issued to.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired verifies the bearer token, rejects unknown roles and users
// that no longer exist, and stores the caller identity on the context.
func AuthRequired(tokens *utils.TokenIssuer, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		role, err := access.ParseRole(claims.Role)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, response.ErrNotFound) {
				response.Unauthorized(c, "user no longer exists")
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		if user.Role != role {
			response.Unauthorized(c, "token role is stale, sign in again")
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextRole, role)

		c.Next()
	}
}

// AdminRequired rejects authenticated callers that are not ADMIN.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != access.RoleAdmin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}

// GetEmail gets the current user email from context
func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

// GetRole gets the current user role from context
func GetRole(c *gin.Context) access.Role {
	if role, exists := c.Get(ContextRole); exists {
		if v, ok := role.(access.Role); ok {
			return v
		}
	}
	return ""
}

// GetAccessContext builds the caller's access context. ok is false when the
// request did not pass AuthRequired.
func GetAccessContext(c *gin.Context) (access.Context, bool) {
	id := GetUserID(c)
	role := GetRole(c)
	if id == 0 || role == "" {
		return access.Context{}, false
	}
	return access.NewContext(id, role), true
}
