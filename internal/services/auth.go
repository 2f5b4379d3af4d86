package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/internal/utils"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
	"gorm.io/gorm"
)

const (
	msgUserExists         = "user already exists"
	msgInvalidCredentials = "invalid credentials"
	msgAdminSignup        = "admin accounts cannot sign up, contact an administrator"
)

type AuthService struct {
	db     *gorm.DB
	tokens *utils.TokenIssuer
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenIssuer) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a USER account. Requesting ADMIN is forbidden; any role
// other than USER or ADMIN is invalid.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*AuthResult, error) {
	if req.Role != "" {
		role, err := access.ParseRole(req.Role)
		if err != nil {
			return nil, response.NewBadRequest("role must be USER")
		}
		if role == access.RoleAdmin {
			return nil, response.NewForbidden(msgAdminSignup)
		}
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, response.NewBadRequest("email and password are required")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, Password: hash, Role: access.RoleUser}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict(msgUserExists)
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent signup; the unique index decided
		return nil, response.NewConflict(msgUserExists)
	}
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *AuthService) Signin(ctx context.Context, req *SigninRequest) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewUnauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, response.NewUnauthorized(msgInvalidCredentials)
	}

	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email, user.Role.String())
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// CreateAdminIfNotExists seeds the configured administrator. It does nothing
// when no email is configured or the account already exists.
func (s *AuthService) CreateAdminIfNotExists(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		logger.Info().Msg("[Auth] No admin email configured, skipping admin seed")
		return nil
	}
	if password == "" {
		return errors.New("admin password is required when admin email is set")
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != access.RoleAdmin {
			logger.Warn().Str("email", email).Msg("[Auth] Configured admin email belongs to a non-admin user")
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{Email: email, Password: hash, Role: access.RoleAdmin}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	logger.Info().Str("email", email).Msg("[Auth] Admin user created")
	return nil
}
