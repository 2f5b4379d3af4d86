package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// List returns a project's tasks
// GET .../projects/:projectId/tasks
func (h *TaskHandler) List(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), projectID, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"tasks": tasks, "count": len(tasks)})
}

// Get returns one task
// GET .../projects/:projectId/tasks/:taskId
func (h *TaskHandler) Get(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}
	taskID, ok := idParam(c, "taskId", "task")
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), projectID, taskID, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Create adds a task to a project
// POST .../projects/:projectId/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), projectID, &req, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Update updates a task
// PUT .../projects/:projectId/tasks/:taskId
func (h *TaskHandler) Update(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}
	taskID, ok := idParam(c, "taskId", "task")
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), projectID, taskID, &req, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete removes a task
// DELETE .../projects/:projectId/tasks/:taskId
func (h *TaskHandler) Delete(c *gin.Context) {
	ac, target, ok := requestScope(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "projectId", "project")
	if !ok {
		return
	}
	taskID, ok := idParam(c, "taskId", "task")
	if !ok {
		return
	}

	task, err := h.taskService.Delete(c.Request.Context(), projectID, taskID, ac, target)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "task deleted", "task": task})
}
