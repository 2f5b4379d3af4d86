package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/internal/utils"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, response.NewNotFound("user not found")
}

type failingUsers struct{}

func (failingUsers) GetByID(context.Context, uint) (*models.User, error) {
	return nil, errors.New("db down")
}

var testIssuer = utils.NewTokenIssuer("test-secret-for-middleware-testing", 1)

func newAuthRouter(users UserLookup) *gin.Engine {
	router := gin.New()
	router.Use(AuthRequired(testIssuer, users))
	router.GET("/protected", func(c *gin.Context) {
		ac, ok := GetAccessContext(c)
		c.JSON(200, gin.H{
			"user_id":  ac.UserID,
			"email":    GetEmail(c),
			"role":     ac.Role,
			"is_admin": ac.IsAdmin,
			"ok":       ok,
		})
	})
	return router
}

func doGet(router http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired_NoHeader(t *testing.T) {
	w := doGet(newAuthRouter(fakeUsers{}), "/protected", "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_InvalidFormat(t *testing.T) {
	router := newAuthRouter(fakeUsers{})

	testCases := []string{
		"InvalidToken",
		"Basic token123",
		"Bearer",
		"Bearer   ",
		"bearer abc",
	}

	for _, authHeader := range testCases {
		w := doGet(router, "/protected", authHeader)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status %d, got %d", authHeader, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthRequired_InvalidToken(t *testing.T) {
	w := doGet(newAuthRouter(fakeUsers{}), "/protected", "Bearer invalid.jwt.token")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_WrongSecret(t *testing.T) {
	other := utils.NewTokenIssuer("another-secret", 1)
	token, _ := other.Generate(1, "a@example.com", "USER")
	users := fakeUsers{1: {ID: 1, Email: "a@example.com", Role: access.RoleUser}}

	w := doGet(newAuthRouter(users), "/protected", "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_ValidToken(t *testing.T) {
	token, _ := testIssuer.Generate(7, "admin@example.com", "ADMIN")
	users := fakeUsers{7: {ID: 7, Email: "admin@example.com", Role: access.RoleAdmin}}

	w := doGet(newAuthRouter(users), "/protected", "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var body struct {
		UserID  uint   `json:"user_id"`
		Email   string `json:"email"`
		Role    string `json:"role"`
		IsAdmin bool   `json:"is_admin"`
		OK      bool   `json:"ok"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.UserID != 7 || body.Email != "admin@example.com" || body.Role != "ADMIN" || !body.IsAdmin || !body.OK {
		t.Errorf("unexpected identity: %+v", body)
	}
}

func TestAuthRequired_UnknownRole(t *testing.T) {
	users := fakeUsers{3: {ID: 3, Email: "m@example.com", Role: access.RoleUser}}

	for _, role := range []string{"MANAGER", "admin", "user", ""} {
		token, _ := testIssuer.Generate(3, "m@example.com", role)
		w := doGet(newAuthRouter(users), "/protected", "Bearer "+token)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("role %q: expected status %d, got %d", role, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthRequired_DeletedUser(t *testing.T) {
	token, _ := testIssuer.Generate(9, "gone@example.com", "USER")

	w := doGet(newAuthRouter(fakeUsers{}), "/protected", "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_StaleRole(t *testing.T) {
	token, _ := testIssuer.Generate(4, "u@example.com", "ADMIN")
	users := fakeUsers{4: {ID: 4, Email: "u@example.com", Role: access.RoleUser}}

	w := doGet(newAuthRouter(users), "/protected", "Bearer "+token)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_LookupFailure(t *testing.T) {
	token, _ := testIssuer.Generate(4, "u@example.com", "USER")

	w := doGet(newAuthRouter(failingUsers{}), "/protected", "Bearer "+token)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func newAdminRouter(role interface{}) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role != nil {
			c.Set(ContextRole, role)
		}
		c.Next()
	})
	router.Use(AdminRequired())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func TestAdminRequired(t *testing.T) {
	tests := []struct {
		name string
		role interface{}
		want int
	}{
		{"no role", nil, http.StatusForbidden},
		{"user role", access.RoleUser, http.StatusForbidden},
		{"raw string is not a role", "ADMIN", http.StatusForbidden},
		{"admin role", access.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newAdminRouter(tt.role), "/admin", "")
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGetUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if id := GetUserID(c); id != 0 {
		t.Errorf("expected 0 for missing user_id, got %d", id)
	}

	c.Set(ContextUserID, uint(42))
	if id := GetUserID(c); id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestGetEmail(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if email := GetEmail(c); email != "" {
		t.Errorf("expected empty string for missing email, got %q", email)
	}

	c.Set(ContextEmail, "a@example.com")
	if email := GetEmail(c); email != "a@example.com" {
		t.Errorf("expected %q, got %q", "a@example.com", email)
	}
}

func TestGetAccessContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := GetAccessContext(c); ok {
		t.Error("expected no access context before authentication")
	}

	c.Set(ContextUserID, uint(5))
	c.Set(ContextRole, access.RoleUser)
	ac, ok := GetAccessContext(c)
	if !ok {
		t.Fatal("expected access context")
	}
	if ac.UserID != 5 || ac.Role != access.RoleUser || ac.IsAdmin {
		t.Errorf("unexpected access context: %+v", ac)
	}
}
