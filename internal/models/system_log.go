package models

import "time"

// Log levels stored in system_logs.level.
const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// SystemLog is an activity record: admin audit entries and consumed
// project/task events.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"`
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	IP        string    `gorm:"size:50" json:"ip"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
