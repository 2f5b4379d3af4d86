package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
	"gorm.io/gorm"
)

const eventsModule = "Events"

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

// LogEntry is one activity record to persist.
type LogEntry struct {
	Level     string
	Module    string
	Action    string
	Message   string
	UserID    *uint
	IP        string
	UserAgent string
	Extra     interface{}
}

// Write persists entry. Failures are logged and returned.
func (s *SystemLogService) Write(ctx context.Context, entry LogEntry) error {
	if entry.Level == "" {
		entry.Level = models.LogLevelInfo
	}

	var extra string
	if entry.Extra != nil {
		if b, err := json.Marshal(entry.Extra); err == nil {
			extra = string(b)
		}
	}

	row := &models.SystemLog{
		Level:     entry.Level,
		Module:    entry.Module,
		Action:    entry.Action,
		Message:   entry.Message,
		UserID:    entry.UserID,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Extra:     extra,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.Warn().Err(err).Str("module", entry.Module).Str("action", entry.Action).Msg("[SystemLog] write failed")
		return err
	}
	return nil
}

// RecordEvent stores a consumed project/task event as an activity record.
// It is the EventProcessor for both publishers.
func (s *SystemLogService) RecordEvent(ctx context.Context, event Event) error {
	resource, action, _ := strings.Cut(event.Topic, ".")

	msg := fmt.Sprintf("%s %d %s: %s", resource, event.ProjectID, action, event.Title)
	if event.TaskID != 0 {
		msg = fmt.Sprintf("%s %d in project %d %s: %s", resource, event.TaskID, event.ProjectID, action, event.Title)
	}

	var uid *uint
	if event.UserID != 0 {
		id := event.UserID
		uid = &id
	}

	return s.Write(ctx, LogEntry{
		Module:  eventsModule,
		Action:  event.Topic,
		Message: msg,
		UserID:  uid,
		Extra:   event,
	})
}

type SystemLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	UserID    uint   `form:"user_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.SystemLog
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// Modules lists the distinct modules that have written logs.
func (s *SystemLogService) Modules(ctx context.Context) ([]string, error) {
	var modules []string
	if err := s.db.WithContext(ctx).Model(&models.SystemLog{}).Distinct("module").Order("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than retentionDays and returns how many
// rows were removed. A non-positive retention disables cleanup.
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// LogCleanupScheduler prunes system_logs on a cron schedule.
type LogCleanupScheduler struct {
	service       *SystemLogService
	retentionDays int
	cron          *cron.Cron
}

func NewLogCleanupScheduler(service *SystemLogService, retentionDays int) *LogCleanupScheduler {
	return &LogCleanupScheduler{
		service:       service,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start registers the job under spec (standard 5-field cron) and runs one
// cleanup immediately.
func (s *LogCleanupScheduler) Start(spec string) error {
	if s.retentionDays <= 0 {
		logger.Infof("[SystemLog] Log cleanup disabled (retention_days <= 0)")
		return nil
	}

	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return fmt.Errorf("schedule log cleanup %q: %w", spec, err)
	}
	s.cron.Start()
	logger.Infof("[SystemLog] Cleanup scheduled (cron: %s, retention: %d days)", spec, s.retentionDays)

	go s.RunOnce()
	return nil
}

func (s *LogCleanupScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *LogCleanupScheduler) RunOnce() {
	deleted, err := s.service.CleanupOldLogs(context.Background(), s.retentionDays)
	if err != nil {
		logger.Errorf("[SystemLog] Failed to cleanup old logs: %v", err)
		return
	}
	if deleted > 0 {
		logger.Infof("[SystemLog] Cleaned up %d logs older than %d days", deleted, s.retentionDays)
	}
}
