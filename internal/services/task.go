package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
	"gorm.io/gorm"
)

const msgTaskNotFound = "task not found"

// TaskService manages tasks. Every operation first checks that the parent
// project is visible to the caller under the same rule as ProjectService,
// including update and delete.
type TaskService struct {
	db       *gorm.DB
	notifier *ChangeNotifier
}

func NewTaskService(db *gorm.DB, notifier *ChangeNotifier) *TaskService {
	return &TaskService{db: db, notifier: notifier}
}

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"max=255"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// UpdateTaskRequest fields are optional. A blank title keeps the stored one.
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func findTask(db *gorm.DB, projectID, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := db.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgTaskNotFound)
		}
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) List(ctx context.Context, projectID uint, ac access.Context, target uint) ([]models.Task, error) {
	db := s.db.WithContext(ctx)
	if _, err := findVisible(db, projectID, ac, target); err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	if err := db.Where("project_id = ?", projectID).Order(newestFirst).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, projectID, taskID uint, ac access.Context, target uint) (*models.Task, error) {
	db := s.db.WithContext(ctx)
	if _, err := findVisible(db, projectID, ac, target); err != nil {
		return nil, err
	}
	return findTask(db, projectID, taskID)
}

// Create validates the request before touching the store.
func (s *TaskService) Create(ctx context.Context, projectID uint, req *CreateTaskRequest, ac access.Context, target uint) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, response.NewBadRequest(msgTitleRequired)
	}

	task := &models.Task{
		Title:       title,
		Description: req.Description,
		Completed:   req.Completed,
		ProjectID:   projectID,
	}

	var owner uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findVisible(tx, projectID, ac, target)
		if err != nil {
			return err
		}
		owner = project.UserID
		return tx.Create(task).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, NewTaskEvent(TopicTaskCreated, task, owner))
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, projectID, taskID uint, req *UpdateTaskRequest, ac access.Context, target uint) (*models.Task, error) {
	var (
		task  *models.Task
		owner uint
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findVisible(tx, projectID, ac, target)
		if err != nil {
			return err
		}
		owner = project.UserID

		task, err = findTask(tx, projectID, taskID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			if title := strings.TrimSpace(*req.Title); title != "" {
				updates["title"] = title
			}
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Completed != nil {
			updates["completed"] = *req.Completed
		}
		if len(updates) > 0 {
			if err := tx.Model(task).Updates(updates).Error; err != nil {
				return err
			}
		}

		task, err = findTask(tx, projectID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, NewTaskEvent(TopicTaskUpdated, task, owner))
	return task, nil
}

// Delete removes the task and returns it.
func (s *TaskService) Delete(ctx context.Context, projectID, taskID uint, ac access.Context, target uint) (*models.Task, error) {
	var (
		task  *models.Task
		owner uint
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findVisible(tx, projectID, ac, target)
		if err != nil {
			return err
		}
		owner = project.UserID

		task, err = findTask(tx, projectID, taskID)
		if err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, NewTaskEvent(TopicTaskDeleted, task, owner))
	return task, nil
}
