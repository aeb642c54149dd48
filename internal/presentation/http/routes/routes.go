// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/container"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/presentation/http/handlers"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(allowedOrigins))

	// Initialize handlers
	pageViewHandlers := handlers.NewPageViewHandlers(container.PageViewService, container.Logger)
	streamHandlers := handlers.NewStreamHandlers(container.PageViewService, container.Logger)
	systemHandlers := handlers.NewSystemHandlers(container.PageViewService, container.Logger)

	r.GET("/health", systemHandlers.GetHealth)

	api := r.Group("/api/v1")
	{
		api.POST("/pageviews", pageViewHandlers.PostPageView)
		api.POST("/score", pageViewHandlers.PostScore)

		// Beacon endpoints, authorized by the page view token
		pageView := api.Group("/pageviews/:id")
		pageView.Use(middleware.PageViewAuthMiddleware(container.PageViewService))
		{
			pageView.POST("/observations", pageViewHandlers.PostObservations)
			pageView.POST("/interactions", pageViewHandlers.PostInteraction)
			pageView.POST("/milestones", pageViewHandlers.PostMilestone)
			pageView.GET("/metrics", pageViewHandlers.GetMetrics)
			pageView.DELETE("", pageViewHandlers.DeletePageView)
			pageView.GET("/stream", streamHandlers.StreamSSE)
			pageView.GET("/ws", streamHandlers.StreamWS)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(container.AdminToken))
		{
			admin.GET("/logs/levels", systemHandlers.GetLogLevels)
			admin.POST("/logs/levels", systemHandlers.SetLogLevel)
		}
	}

	return r
}
