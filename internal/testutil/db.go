// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rohhann12/keeping-track-of-it/internal/access"
	"github.com/rohhann12/keeping-track-of-it/internal/config"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/internal/utils"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory sqlite database migrated with every model.
// It is closed when the test finishes.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { _ = models.Close(db) })
	return db
}

// CreateUser inserts a user with a hashed "password123".
func CreateUser(t testing.TB, db *gorm.DB, email string, role access.Role) *models.User {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{Email: email, Password: hash, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

// CreateProject inserts a project owned by ownerID.
func CreateProject(t testing.TB, db *gorm.DB, ownerID uint, title string) *models.Project {
	t.Helper()

	project := &models.Project{Title: title, UserID: ownerID}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project %s: %v", title, err)
	}
	return project
}

// CreateTask inserts a task under projectID.
func CreateTask(t testing.TB, db *gorm.DB, projectID uint, title string) *models.Task {
	t.Helper()

	task := &models.Task{Title: title, ProjectID: projectID}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}
