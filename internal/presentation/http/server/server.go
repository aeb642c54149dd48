// Package server provides HTTP server initialization and management.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/container"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/presentation/http/middleware"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/presentation/http/routes"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

// Server wraps the HTTP server with configuration and dependency injection
type Server struct {
	httpServer *http.Server
	container  *container.Container
}

// New creates a new HTTP server instance with dependency injection
func New(port string, container *container.Container) *Server {
	router := routes.SetupRoutes(container, config.AllowedOrigins)

	// The write timeout is applied per request so debug streams stay open.
	httpServer := &http.Server{
		Addr:        ":" + port,
		Handler:     middleware.WriteDeadline(router, config.ServerWriteTimeout),
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		container:  container,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.container.Logger.Shutdown().Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
