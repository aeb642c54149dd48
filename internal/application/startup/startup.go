// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/container"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/caching/cleanup"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/security"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/presentation/http/server"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

// Options overrides configuration values from the command line.
type Options struct {
	Port        string
	ProfilePath string
}

// Initialize performs the complete startup sequence and blocks until shutdown
func Initialize(opts Options) error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Logger
	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Starting engagement collector")

	// Step 2: Tracking profile
	profilePath := config.TrackingProfilePath
	if opts.ProfilePath != "" {
		profilePath = opts.ProfilePath
	}
	phaseStart := time.Now()
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return err
	}
	logger.LogStartupPhase("tracking_profile", time.Since(phaseStart), true, map[string]any{"path": profilePath})

	// Step 3: Token secret
	secret := config.JWTSecret
	if secret == "" {
		secret, err = security.GenerateSecureKey(64)
		if err != nil {
			return err
		}
		logger.Startup().Warn("JWT_SECRET not set; generated an ephemeral secret, tokens will not survive a restart")
	}
	settings := services.NewTrackingSettings(profile, secret)

	// Step 4: Flag store
	phaseStart = time.Now()
	flagStore, flagCloser, err := OpenFlagStore(ctx, FlagStoreOptionsFromConfig(), logger)
	if err != nil {
		logger.LogError(logging.ChannelStartup, "open_flag_store", err, map[string]any{"backend": config.FlagStore})
		return fmt.Errorf("failed to open flag store: %w", err)
	}
	logger.LogStartupPhase("flag_store", time.Since(phaseStart), true, map[string]any{"backend": config.FlagStore})

	// Step 5: Container
	appContainer := container.NewContainer(logger, settings, flagStore, clock.NewSystem(), config.AdminToken, flagCloser)
	defer appContainer.Close()
	logger.Startup().Info("Dependency injection container created")

	// Step 6: Background cleanup worker
	cleanupWorker := cleanup.NewWorker(appContainer.PageViewService, cleanup.NewConfig(), logger)
	go cleanupWorker.Start(ctx)

	// Step 7: HTTP server
	port := config.Port
	if opts.Port != "" {
		port = opts.Port
	}
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete", "totalDuration", time.Since(start), "port", port)

	// Wait for shutdown signal or a listener failure
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.Shutdown().Error("HTTP server failed", "error", err.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	// Open streams would otherwise hold the server until the shutdown timeout.
	streams := appContainer.PageViewService.CloseStreams()
	logger.Shutdown().Info("Debug streams closed", "pageViews", streams)

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	unloaded := appContainer.PageViewService.Shutdown()
	logger.Shutdown().Info("Live page views unloaded", "count", unloaded)

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

// NewLogger builds the channeled logger from the environment configuration.
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	cfg.JSONFormat = config.LogJSON
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	return logging.NewChanneledLogger(cfg)
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
