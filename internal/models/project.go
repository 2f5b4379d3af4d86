package models

import "time"

// Project belongs to exactly one user. Deleting it removes its tasks.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Tasks       []Task    `gorm:"constraint:OnDelete:CASCADE" json:"tasks"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Task has no owner of its own; it is owned through its project.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	ProjectID   uint      `gorm:"index;not null" json:"project_id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
