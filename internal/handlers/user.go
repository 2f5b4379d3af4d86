package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/middleware"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

// AdminHandler serves admin-only reads that span users.
type AdminHandler struct {
	adminService *services.AdminService
	userService  *services.UserService
}

func NewAdminHandler(adminService *services.AdminService, userService *services.UserService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		userService:  userService,
	}
}

// ListUsers returns paginated users with their project counts
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.userService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// UserProjectTasks returns a user, one of their projects and its tasks
// GET /api/admin/:userId/projects/:projectId
func (h *AdminHandler) UserProjectTasks(c *gin.Context) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	userID, ok := idParam(c, "userId", "user")
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}

	resp, err := h.adminService.UserProjectTasks(c.Request.Context(), userID, projectID, ac)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
