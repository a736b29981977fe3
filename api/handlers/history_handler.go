package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

// HistoryHandler exposes the job history read-only
type HistoryHandler struct {
	history domain.JobHistoryRepository
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history domain.JobHistoryRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// ListJobs handles GET /api/v1/jobs
func (h *HistoryHandler) ListJobs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	records, err := h.history.FindRecent(limit)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if records == nil {
		records = []*domain.JobRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(records),
		"jobs":  records,
	})
}

// GetStats handles GET /api/v1/jobs/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.history.GetStats()
	if err != nil {
		h.logger.Error("Failed to get job stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
