package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/streamline-go/internal/app"
)

// Version is reported by /health
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	hub     *app.SessionHub
	manager *app.JobManager
	ready   func() error
}

// NewHealthHandler creates a new health handler. ready reports why the service cannot take jobs, or nil.
func NewHealthHandler(hub *app.SessionHub, manager *app.JobManager, ready func() error) *HealthHandler {
	return &HealthHandler{
		hub:     hub,
		manager: manager,
		ready:   ready,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
	Jobs     struct {
		Active int64 `json:"active"`
	} `json:"jobs"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: h.hub.Count(),
	}
	response.Jobs.Active = h.manager.ActiveJobs()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
