package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/pkg/logger"
	"go.uber.org/zap"
)

// FileHandler delivers finished artifacts at most once
type FileHandler struct {
	store       domain.ArtifactStore
	history     domain.JobHistoryRepository
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
}

// NewFileHandler creates a new file handler
func NewFileHandler(store domain.ArtifactStore, history domain.JobHistoryRepository, logger *zap.Logger, multiLogger *logger.MultiLogger) *FileHandler {
	return &FileHandler{
		store:       store,
		history:     history,
		logger:      logger,
		multiLogger: multiLogger,
	}
}

// GetFile handles GET /get_file/:filename
func (h *FileHandler) GetFile(c *gin.Context) {
	name := c.Param("filename")

	artifact, err := h.store.Claim(name)
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactNotFound) && !errors.Is(err, domain.ErrInvalidRequest) {
			h.logger.Error("Failed to claim artifact", zap.String("name", name), zap.Error(err))
		}
		c.String(http.StatusNotFound, "File not found or already deleted.")
		return
	}
	// The claimed file goes away whether or not the transfer completes
	defer h.store.Release(artifact)

	c.FileAttachment(artifact.Path, artifact.Name)

	if err := h.history.MarkDelivered(artifact.Name); err != nil {
		h.logger.Warn("Failed to mark artifact delivered", zap.String("name", artifact.Name), zap.Error(err))
	}

	h.logger.Info("Artifact delivered",
		zap.String("name", artifact.Name),
		zap.Int64("size", artifact.Size),
		zap.String("client_ip", c.ClientIP()))
	if h.multiLogger != nil {
		h.multiLogger.LogDelivery("artifact_delivered",
			zap.String("name", artifact.Name),
			zap.Int64("size", artifact.Size),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()))
	}
}
