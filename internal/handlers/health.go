package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/services"
	"gorm.io/gorm"
)

const healthProbeTimeout = 2 * time.Second

// HealthHandler reports the state of the store and the optional Redis
// services.
type HealthHandler struct {
	db        *gorm.DB
	cache     *services.ResponseCache
	publisher services.EventPublisher
}

func NewHealthHandler(db *gorm.DB, cache *services.ResponseCache, publisher services.EventPublisher) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, publisher: publisher}
}

// CheckHealth returns 200 when the database answers and 503 otherwise.
// Cache trouble degrades the report but not the status.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	overall := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	cacheStatus := "disabled"
	if h.cache.Enabled() {
		cacheStatus = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			cacheStatus = "error: " + err.Error()
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	eventMode := "disabled"
	if h.publisher != nil {
		eventMode = "sync"
		if h.publisher.IsAsync() {
			eventMode = "async (Redis)"
		}
	}

	c.JSON(code, gin.H{
		"status":    overall,
		"service":   "keeping-track-of-it",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"components": gin.H{
			"database": dbStatus,
			"cache":    cacheStatus,
			"events":   eventMode,
		},
	})
}
