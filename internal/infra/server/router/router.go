// Package router sets up the HTTP routing for the application.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/propertyledger/backend/internal/integration/entrypoint/controller"
	"github.com/propertyledger/backend/internal/integration/entrypoint/middleware"
)

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine                   *gin.Engine
	healthController         *controller.HealthController
	entryController          *controller.EntryController
	statisticsController     *controller.StatisticsController
	reconciliationController *controller.ReconciliationController
	adminRateLimiter         *middleware.RateLimiter
	authMiddleware           *middleware.AuthMiddleware
}

// NewRouter creates a new router instance with all dependencies.
// A nil adminRateLimiter leaves the admin endpoints unlimited.
func NewRouter(
	healthController *controller.HealthController,
	entryController *controller.EntryController,
	statisticsController *controller.StatisticsController,
	reconciliationController *controller.ReconciliationController,
	adminRateLimiter *middleware.RateLimiter,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		healthController:         healthController,
		entryController:          entryController,
		statisticsController:     statisticsController,
		reconciliationController: reconciliationController,
		adminRateLimiter:         adminRateLimiter,
		authMiddleware:           authMiddleware,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(environment string) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if environment == "test" {
		gin.SetMode(gin.TestMode)
	}

	// Create router with default middleware (logger and recovery)
	r.engine = gin.Default()

	r.setupHealthRoutes()
	r.setupAPIRoutes()

	return r.engine
}

// setupHealthRoutes configures health check endpoints.
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.healthController.Check)
}

// setupAPIRoutes configures the main API routes. Every route below requires authentication.
func (r *Router) setupAPIRoutes() {
	if r.authMiddleware == nil {
		return
	}

	v1 := r.engine.Group("/api/v1")
	v1.Use(r.authMiddleware.Authenticate())
	{
		// Property scoped routes
		properties := v1.Group("/properties/:id")
		{
			if r.statisticsController != nil {
				properties.GET("/balance", r.statisticsController.GetBalance)
				properties.GET("/rollups", r.statisticsController.QueryRollups)
			}
			if r.entryController != nil {
				properties.POST("/entries", r.entryController.Create)
			}
		}

		// Entry routes
		if r.entryController != nil {
			entries := v1.Group("/entries")
			{
				entries.POST("/:id/accept", r.entryController.Accept)
				entries.PATCH("/:id", r.entryController.Update)
				entries.DELETE("/:id", r.entryController.Delete)
			}
		}

		// Reconciliation admin routes
		if r.reconciliationController != nil {
			admin := v1.Group("/admin")
			if r.adminRateLimiter != nil {
				admin.Use(r.adminRateLimiter.Middleware())
			}
			{
				admin.POST("/reconcile", r.reconciliationController.Reconcile)
				admin.POST("/drift", r.reconciliationController.Drift)
			}
		}
	}
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
