// Package cleanup provides the background worker that unloads abandoned page views
package cleanup

import (
	"context"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

// Expirer unloads page views idle for longer than ttl and returns their ids.
type Expirer interface {
	ExpireIdle(ttl time.Duration) []string
}

// Worker handles background page view expiry
type Worker struct {
	expirer Expirer
	config  *Config
	logger  *logging.ChanneledLogger
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(expirer Expirer, config *Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		expirer: expirer,
		config:  config,
		logger:  logger,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.System().Info("Page view cleanup worker started",
		"interval", w.config.CleanupInterval, "ttl", w.config.PageViewTTL)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Page view cleanup worker stopping")
			return
		case <-ticker.C:
			w.performCleanup()
		}
	}
}

// performCleanup runs one expiry pass
func (w *Worker) performCleanup() int {
	start := time.Now()
	expired := w.expirer.ExpireIdle(w.config.PageViewTTL)

	if len(expired) > 0 {
		w.logger.System().Info("Page view cleanup finished",
			"expired", len(expired), "duration", time.Since(start))
		if w.config.VerboseReporting {
			w.logger.System().Debug("Expired page views", "ids", expired)
		}
	} else if w.config.VerboseReporting {
		w.logger.System().Debug("Page view cleanup completed, nothing idle", "duration", time.Since(start))
	}
	return len(expired)
}
