package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

// maxObservationsPerBatch bounds one beacon flush.
const maxObservationsPerBatch = 500

// PageViewHandlers contains the beacon-facing page view endpoints
type PageViewHandlers struct {
	service *services.PageViewService
	logger  *logging.ChanneledLogger
}

// ObservationBatch is the body of POST /pageviews/:id/observations
type ObservationBatch struct {
	Observations []services.ObservationPayload `json:"observations"`
}

// NewPageViewHandlers creates page view handlers with injected dependencies
func NewPageViewHandlers(service *services.PageViewService, logger *logging.ChanneledLogger) *PageViewHandlers {
	return &PageViewHandlers{service: service, logger: logger}
}

// PostPageView handles POST /api/v1/pageviews
func (h *PageViewHandlers) PostPageView(c *gin.Context) {
	var req services.CreatePageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	res, err := h.service.Create(req)
	if err != nil {
		h.logger.HTTP().Error("Page view creation failed", "path", req.Path, "error", err.Error())
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// PostObservations handles POST /api/v1/pageviews/:id/observations
func (h *PageViewHandlers) PostObservations(c *gin.Context) {
	var batch ObservationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(batch.Observations) > maxObservationsPerBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many observations in one batch"})
		return
	}
	n, err := h.service.Observe(c.Param("id"), batch.Observations)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": n})
}

// PostInteraction handles POST /api/v1/pageviews/:id/interactions
func (h *PageViewHandlers) PostInteraction(c *gin.Context) {
	var req services.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.service.TrackInteraction(c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostMilestone handles POST /api/v1/pageviews/:id/milestones
func (h *PageViewHandlers) PostMilestone(c *gin.Context) {
	var req services.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.service.TrackMilestone(c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMetrics handles GET /api/v1/pageviews/:id/metrics
func (h *PageViewHandlers) GetMetrics(c *gin.Context) {
	res, err := h.service.Metrics(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeletePageView handles DELETE /api/v1/pageviews/:id
func (h *PageViewHandlers) DeletePageView(c *gin.Context) {
	if err := h.service.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostScore handles POST /api/v1/score
func (h *PageViewHandlers) PostScore(c *gin.Context) {
	var f engagement.Factors
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.Score(f))
}
