package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

// Response is the unified API response format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Code       int    // Application-level error code
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches any AppError carrying the same application code, so callers can
// write errors.Is(err, response.ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons. Messages are irrelevant to matching.
var (
	ErrValidation   = &AppError{HTTPStatus: http.StatusBadRequest, Code: 400}
	ErrUnauthorized = &AppError{HTTPStatus: http.StatusUnauthorized, Code: 401}
	ErrForbidden    = &AppError{HTTPStatus: http.StatusForbidden, Code: 403}
	ErrNotFound     = &AppError{HTTPStatus: http.StatusNotFound, Code: 404}
	ErrConflict     = &AppError{HTTPStatus: http.StatusBadRequest, Code: 409}
)

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: 400, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: 401, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Code: 403, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: 404, Message: msg}
}

// NewConflict is sent as HTTP 400; the 409 application code tells clients it
// was a duplicate rather than a malformed request.
func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: 409, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: 500, Message: msg}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. An *AppError keeps its status and code.
// Anything else is logged and reported as a generic 500 so store or driver
// messages never reach the client.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.Code,
			Message: appErr.Message,
		})
		return
	}

	logger.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, Response{
		Code:    500,
		Message: "internal server error",
	})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Message: msg})
}

func TooManyRequests(c *gin.Context, msg string) {
	c.JSON(http.StatusTooManyRequests, Response{Code: 429, Message: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Message: msg})
}
