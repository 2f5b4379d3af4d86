package main

import (
	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/internal/handlers"
	"github.com/rohhann12/keeping-track-of-it/internal/metrics"
	"github.com/rohhann12/keeping-track-of-it/internal/middleware"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine. The
// returned limiter must be closed on shutdown.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery(), metrics.Middleware())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	authLimiter := middleware.NewRateLimiter(svc.cfg.RateLimit.RPS, svc.cfg.RateLimit.Burst)

	authHandler := handlers.NewAuthHandler(svc.authService, svc.userService)
	projectHandler := handlers.NewProjectHandler(svc.projectService)
	taskHandler := handlers.NewTaskHandler(svc.taskService)
	adminHandler := handlers.NewAdminHandler(svc.adminService, svc.userService)
	systemLogHandler := handlers.NewSystemLogHandler(svc.systemLogService)
	healthHandler := handlers.NewHealthHandler(svc.db, svc.cache, svc.publisher)

	authRequired := middleware.AuthRequired(svc.tokens, svc.userService)

	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authLimiter.Middleware(), authHandler.Signup)
			auth.POST("/signin", authLimiter.Middleware(), authHandler.Signin)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		// Own projects and tasks, any role
		user := api.Group("/user", authRequired)
		{
			user.GET("/projects", middleware.CacheResponse(svc.cache, middleware.UserProjectsCacheKey), projectHandler.List)
			user.POST("/projects", projectHandler.Create)
			user.GET("/projects/:projectId", projectHandler.Get)
			user.PUT("/projects/:projectId", projectHandler.Update)
			user.DELETE("/projects/:projectId", projectHandler.Delete)

			user.GET("/projects/:projectId/tasks", taskHandler.List)
			user.POST("/projects/:projectId/tasks", taskHandler.Create)
			user.GET("/projects/:projectId/tasks/:taskId", taskHandler.Get)
			user.PUT("/projects/:projectId/tasks/:taskId", taskHandler.Update)
			user.DELETE("/projects/:projectId/tasks/:taskId", taskHandler.Delete)
		}

		// Admin routes, writes are audited
		admin := api.Group("/admin", authRequired, middleware.AdminRequired(), middleware.AuditLog(svc.systemLogService))
		{
			admin.GET("/projects", middleware.CacheResponse(svc.cache, middleware.AdminAllProjectsCacheKey), projectHandler.ListAll)
			admin.GET("/projects/:projectId", projectHandler.Get)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.Modules)

			admin.GET("/:userId/projects", middleware.CacheResponse(svc.cache, middleware.AdminUserProjectsCacheKey), projectHandler.List)
			admin.POST("/:userId/projects", projectHandler.Create)
			admin.GET("/:userId/projects/:projectId", adminHandler.UserProjectTasks)
			admin.PUT("/:userId/projects/:projectId", projectHandler.Update)
			admin.DELETE("/:userId/projects/:projectId", projectHandler.Delete)

			admin.GET("/:userId/projects/:projectId/tasks", taskHandler.List)
			admin.POST("/:userId/projects/:projectId/tasks", taskHandler.Create)
			admin.GET("/:userId/projects/:projectId/tasks/:taskId", taskHandler.Get)
			admin.PUT("/:userId/projects/:projectId/tasks/:taskId", taskHandler.Update)
			admin.DELETE("/:userId/projects/:projectId/tasks/:taskId", taskHandler.Delete)
		}
	}

	return authLimiter
}
