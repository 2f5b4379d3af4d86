package services

import (
	"context"
	"errors"

	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Email    string `form:"email"`
	Role     string `form:"role"`
}

// UserSummary is a user row with the number of projects they own.
type UserSummary struct {
	models.User
	ProjectCount int64 `json:"project_count"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []UserSummary `json:"items"`
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if req.Email != "" {
		query = query.Where("email LIKE ?", "%"+req.Email+"%")
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var users []models.User
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("id ASC").Offset(offset).Limit(req.PageSize).Find(&users).Error; err != nil {
		return nil, err
	}

	items := make([]UserSummary, 0, len(users))
	if len(users) > 0 {
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}

		var counts []struct {
			UserID uint
			Count  int64
		}
		if err := s.db.WithContext(ctx).Model(&models.Project{}).
			Select("user_id, COUNT(*) AS count").
			Where("user_id IN ?", ids).
			Group("user_id").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		byUser := make(map[uint]int64, len(counts))
		for _, c := range counts {
			byUser[c.UserID] = c.Count
		}
		for _, u := range users {
			items = append(items, UserSummary{User: u, ProjectCount: byUser[u.ID]})
		}
	}

	return &UserListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}
