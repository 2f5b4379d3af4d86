package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

// ProjectHandler serves both /api/user/projects and the admin
// /api/admin/:userId/projects routes. The :userId segment, when present,
// is the target user.
type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the effective owner's projects
// GET /api/user/projects, GET /api/admin/:userId/projects
func (h *ProjectHandler) List(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}

	projects, err := h.projectService.List(c.Request.Context(), ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"projects": projects, "count": len(projects)})
}

// ListAll returns every project
// GET /api/admin/projects
func (h *ProjectHandler) ListAll(c *gin.Context) {
	projects, err := h.projectService.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"projects": projects, "count": len(projects)})
}

// Get returns one project with its owner and tasks
// GET /api/user/projects/:projectId, GET /api/admin/projects/:projectId
func (h *ProjectHandler) Get(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), projectID, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Create creates a project owned by the effective owner
// POST /api/user/projects, POST /api/admin/:userId/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}

	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	owner := access.ResolveEffectiveOwner(ac, target)
	project, err := h.projectService.Create(c.Request.Context(), &req, owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Update updates a project
// PUT /api/user/projects/:projectId, PUT /api/admin/:userId/projects/:projectId
func (h *ProjectHandler) Update(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), projectID, &req, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete deletes a project and its tasks
// DELETE /api/user/projects/:projectId, DELETE /api/admin/:userId/projects/:projectId
func (h *ProjectHandler) Delete(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Delete(c.Request.Context(), projectID, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project deleted", "project": project})
}
