package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

// SystemHandlers contains health and operator endpoints
type SystemHandlers struct {
	service *services.PageViewService
	logger  *logging.ChanneledLogger
}

// NewSystemHandlers creates system handlers with injected dependencies
func NewSystemHandlers(service *services.PageViewService, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{service: service, logger: logger}
}

// GetHealth handles GET /health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"stats":  h.service.Stats(),
	})
}

// GetLogLevels handles GET /api/v1/admin/logs/levels - returns current log levels for all channels.
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.logger.GetChannelLevels())
}

// SetLogLevel handles POST /api/v1/admin/logs/levels - sets the log level for a specific channel.
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	level := logging.ParseLevel(req.Level)
	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.System().Info("Log level changed", "channel", req.Channel, "level", level.String())
	c.JSON(http.StatusOK, h.logger.GetChannelLevels())
}
