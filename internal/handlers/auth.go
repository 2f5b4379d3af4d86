package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/middleware"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Signup registers a USER account
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Signin exchanges credentials for a token
// POST /api/auth/signin
func (h *AuthHandler) Signin(c *gin.Context) {
	var req services.SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Signin(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Me returns the current user
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}
