package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/middleware"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

// idParam parses a positive path id. It writes a 400 and returns false when
// the value is not a valid id.
func idParam(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+label+" id")
		return 0, false
	}
	return uint(id), true
}

// requestScope returns the caller's access context and the target user id
// taken from the :userId segment of admin routes. Routes without that
// segment have no target.
func requestScope(c *gin.Context) (access.Context, uint, bool) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return access.Context{}, 0, false
	}

	if c.Param("userId") == "" {
		return ac, 0, true
	}
	target, ok := idParam(c, "userId", "user")
	if !ok {
		return access.Context{}, 0, false
	}
	return ac, target, true
}
