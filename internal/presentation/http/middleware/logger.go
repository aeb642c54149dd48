package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

// RequestLogger writes one http channel line per request.
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		if id := c.GetString(PageViewIDKey); id != "" {
			attrs = append(attrs, "pageViewId", id)
		}
		switch {
		case status >= 500:
			logger.HTTP().Error("Request failed", attrs...)
		case status >= 400:
			logger.HTTP().Warn("Request rejected", attrs...)
		default:
			logger.HTTP().Debug("Request served", attrs...)
		}
	}
}
