package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rohhann12/keeping-track-of-it/internal/config"
	"github.com/rohhann12/keeping-track-of-it/internal/metrics"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"github.com/rohhann12/keeping-track-of-it/internal/utils"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
	"gorm.io/gorm"
)

const redisConnectTimeout = 3 * time.Second

// appServices holds the process-wide handles and the services built on them.
type appServices struct {
	cfg *config.Config

	db         *gorm.DB
	redis      *redis.Client
	cache      *services.ResponseCache
	publisher  services.EventPublisher
	worker     *services.EventWorker
	logCleanup *services.LogCleanupScheduler

	tokens           *utils.TokenIssuer
	userService      *services.UserService
	authService      *services.AuthService
	projectService   *services.ProjectService
	taskService      *services.TaskService
	adminService     *services.AdminService
	systemLogService *services.SystemLogService
}

// bootstrap opens the store, connects the optional Redis services, wires
// every service and starts the background jobs. Redis trouble is logged and
// the app runs without cache and with in-process events.
func bootstrap(cfg *config.Config, reg prometheus.Registerer) (*appServices, error) {
	db, err := models.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		_ = models.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	svc := &appServices{cfg: cfg, db: db}

	var cacheClient services.CacheClient
	if cfg.Redis.Enabled && cfg.Cache.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		client, err := services.ConnectRedis(ctx, &cfg.Redis)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("[Cache] Redis unavailable, response cache disabled")
		} else {
			svc.redis = client
			cacheClient = client
		}
	}
	svc.cache = services.NewResponseCache(cacheClient, cfg.Cache.TTL())

	svc.systemLogService = services.NewSystemLogService(db)
	svc.publisher = services.NewEventPublisher(cfg)
	if cfg.Events.Enabled {
		if syncPublisher, ok := svc.publisher.(*services.SyncPublisher); ok {
			syncPublisher.SetProcessor(svc.systemLogService.RecordEvent)
		}
	}
	if svc.publisher.IsAsync() {
		svc.worker = services.NewEventWorker(cfg, svc.systemLogService.RecordEvent)
		if svc.worker != nil {
			if err := svc.worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start event worker, events will queue until restart")
				svc.worker = nil
			}
		}
	}

	notifier := services.NewChangeNotifier(svc.cache, svc.publisher)
	svc.tokens = utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpireHour)
	svc.userService = services.NewUserService(db)
	svc.authService = services.NewAuthService(db, svc.tokens)
	svc.projectService = services.NewProjectService(db, notifier)
	svc.taskService = services.NewTaskService(db, notifier)
	svc.adminService = services.NewAdminService(svc.userService, svc.projectService, svc.taskService)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := svc.authService.CreateAdminIfNotExists(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Warn().Err(err).Msg("Failed to create admin user")
		}
	}

	svc.logCleanup = services.NewLogCleanupScheduler(svc.systemLogService, cfg.Log.RetentionDays)
	if err := svc.logCleanup.Start(cfg.Log.CleanupCron); err != nil {
		logger.Warn().Err(err).Msg("Failed to start log cleanup scheduler")
	}

	if reg != nil {
		metrics.RegisterStoreGauges(reg, db)
	}

	return svc, nil
}

// shutdown stops background work first, then closes the handles it used.
func (s *appServices) shutdown() {
	if s.logCleanup != nil {
		s.logCleanup.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if err := models.Close(s.db); err != nil {
		logger.Warn().Err(err).Msg("Failed to close database")
	}
	logger.Info().Msg("All services stopped")
}
