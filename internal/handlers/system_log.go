package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

type SystemLogHandler struct {
	systemLogService *services.SystemLogService
}

func NewSystemLogHandler(systemLogService *services.SystemLogService) *SystemLogHandler {
	return &SystemLogHandler{systemLogService: systemLogService}
}

// List returns filtered, paginated activity records
// GET /api/admin/system-logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.systemLogService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/admin/system-logs/modules
func (h *SystemLogHandler) Modules(c *gin.Context) {
	modules, err := h.systemLogService.Modules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, modules)
}
