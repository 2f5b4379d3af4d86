package models

import (
	"time"

	"github.com/rohhann12/keeping-track-of-it/internal/access"
)

// User is an account that owns projects. Role is fixed at creation.
type User struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Email     string      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string      `gorm:"size:255;not null" json:"-"`
	Role      access.Role `gorm:"size:10;not null;default:USER" json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (User) TableName() string { return "users" }
