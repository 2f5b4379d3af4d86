package services

import (
	"context"

	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

// AdminService composes reads that only admins perform.
type AdminService struct {
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
}

func NewAdminService(users *UserService, projects *ProjectService, tasks *TaskService) *AdminService {
	return &AdminService{users: users, projects: projects, tasks: tasks}
}

type UserProjectTasks struct {
	User    *models.User    `json:"user"`
	Project *models.Project `json:"project"`
	Tasks   []models.Task   `json:"tasks"`
	Count   int             `json:"count"`
}

// UserProjectTasks loads a user, one of their projects and its tasks. The
// project must belong to userID even though an admin could read it anyway,
// so the path /:userId/projects/:projectId cannot name a foreign project.
func (s *AdminService) UserProjectTasks(ctx context.Context, userID, projectID uint, ac access.Context) (*UserProjectTasks, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.Get(ctx, projectID, ac, userID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, response.NewNotFound(msgProjectNotFound)
	}

	tasks, err := s.tasks.List(ctx, projectID, ac, userID)
	if err != nil {
		return nil, err
	}

	return &UserProjectTasks{
		User:    user,
		Project: project,
		Tasks:   tasks,
		Count:   len(tasks),
	}, nil
}
