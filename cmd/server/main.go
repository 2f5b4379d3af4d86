package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohhann12/keeping-track-of-it/internal/config"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	svc, err := bootstrap(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatalf("Failed to initialize services: %v", err)
	}

	r := gin.New()
	limiter := registerRoutes(r, svc)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, draining requests")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	limiter.Close()
	svc.shutdown()
}
