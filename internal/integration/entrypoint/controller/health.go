// Package controller implements HTTP handlers for the API endpoints.
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PendingCounter reports maintenance work that has not finished yet.
type PendingCounter interface {
	Pending() int
}

// HealthController handles health check endpoints.
type HealthController struct {
	dbHealthChecker    func() bool
	redisHealthChecker func() bool
	maintenance        PendingCounter
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status             string `json:"status"`
	Database           string `json:"database"`
	Redis              string `json:"redis"`
	PendingMaintenance int    `json:"pending_maintenance"`
	Timestamp          string `json:"timestamp"`
}

// NewHealthController creates a new health controller instance.
// A nil redisHealthChecker reports Redis as disabled.
func NewHealthController(dbHealthChecker, redisHealthChecker func() bool, maintenance PendingCounter) *HealthController {
	return &HealthController{
		dbHealthChecker:    dbHealthChecker,
		redisHealthChecker: redisHealthChecker,
		maintenance:        maintenance,
	}
}

// Check handles GET /health requests.
// It returns the current health status of the API and its dependencies.
func (h *HealthController) Check(c *gin.Context) {
	status := "ok"

	dbStatus := "disconnected"
	if h.dbHealthChecker != nil && h.dbHealthChecker() {
		dbStatus = "connected"
	} else {
		status = "degraded"
	}

	redisStatus := "disabled"
	if h.redisHealthChecker != nil {
		redisStatus = "disconnected"
		if h.redisHealthChecker() {
			redisStatus = "connected"
		} else {
			status = "degraded"
		}
	}

	pending := 0
	if h.maintenance != nil {
		pending = h.maintenance.Pending()
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:             status,
		Database:           dbStatus,
		Redis:              redisStatus,
		PendingMaintenance: pending,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
	})
}
