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

const newestFirst = "created_at DESC, id DESC"

const (
	msgProjectNotFound = "project not found"
	msgUserNotFound    = "user not found"
	msgTitleRequired   = "title is required"
)

type ProjectService struct {
	db       *gorm.DB
	notifier *ChangeNotifier
}

func NewProjectService(db *gorm.DB, notifier *ChangeNotifier) *ProjectService {
	return &ProjectService{db: db, notifier: notifier}
}

type CreateProjectRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateProjectRequest keeps the stored title when Title is absent or blank
// and replaces the description only when one is sent.
type UpdateProjectRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order(newestFirst) })
}

// findVisible loads a project the caller may act on. Non-admins only see
// projects owned by their effective owner; admins see any id. Ownership
// mismatch and absence both read as not found.
func findVisible(db *gorm.DB, projectID uint, ac access.Context, target uint) (*models.Project, error) {
	q := db.Where("id = ?", projectID)
	if !ac.IsAdmin {
		q = q.Where("user_id = ?", access.ResolveEffectiveOwner(ac, target))
	}

	var project models.Project
	if err := q.First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgProjectNotFound)
		}
		return nil, err
	}
	return &project, nil
}

// List returns the effective owner's projects, newest first.
func (s *ProjectService) List(ctx context.Context, ac access.Context, target uint) ([]models.Project, error) {
	owner := access.ResolveEffectiveOwner(ac, target)

	projects := []models.Project{}
	err := withDetails(s.db.WithContext(ctx)).
		Where("user_id = ?", owner).
		Order(newestFirst).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListAll returns every project regardless of owner. Callers must have
// already established the caller is an admin.
func (s *ProjectService) ListAll(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}
	if err := withDetails(s.db.WithContext(ctx)).Order(newestFirst).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, projectID uint, ac access.Context, target uint) (*models.Project, error) {
	project, err := findVisible(s.db.WithContext(ctx), projectID, ac, target)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, project.ID)
}

// Create stores a project for ownerID. ownerID is trusted as already
// resolved by the caller.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest, ownerID uint) (*models.Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, response.NewBadRequest(msgTitleRequired)
	}

	project := &models.Project{
		Title:       title,
		Description: req.Description,
		UserID:      ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Select("id").First(&owner, ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound(msgUserNotFound)
			}
			return err
		}
		return tx.Create(project).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, NewProjectEvent(TopicProjectCreated, project))
	return s.reload(ctx, project.ID)
}

func (s *ProjectService) Update(ctx context.Context, projectID uint, req *UpdateProjectRequest, ac access.Context, target uint) (*models.Project, error) {
	var project *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = findVisible(tx, projectID, ac, target)
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
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(project).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reload(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Changed(ctx, NewProjectEvent(TopicProjectUpdated, updated))
	return updated, nil
}

// Delete removes the project and its tasks in one transaction and returns
// the removed project.
func (s *ProjectService) Delete(ctx context.Context, projectID uint, ac access.Context, target uint) (*models.Project, error) {
	var project *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = findVisible(tx, projectID, ac, target)
		if err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, NewProjectEvent(TopicProjectDeleted, project))
	return project, nil
}

func (s *ProjectService) reload(ctx context.Context, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := withDetails(s.db.WithContext(ctx)).First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgProjectNotFound)
		}
		return nil, err
	}
	return &project, nil
}
