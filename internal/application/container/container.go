// Package container provides dependency injection for all singleton services
package container

import (
	"errors"
	"io"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/caching/stores"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/messaging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/performance"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	PageViewService *services.PageViewService

	// Infrastructure Dependencies
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
	Broadcaster *messaging.ReportBroadcaster
	PageViews   *stores.PageViewStore
	Settings    services.TrackingSettings
	AdminToken  string

	closers []io.Closer
}

// NewContainer creates and wires all singleton services. Closers are released by Close.
func NewContainer(
	logger *logging.ChanneledLogger,
	settings services.TrackingSettings,
	flags engagement.FlagStore,
	clk clock.Clock,
	adminToken string,
	closers ...io.Closer,
) *Container {
	if clk == nil {
		clk = clock.NewSystem()
	}
	perf := performance.NewTracker(0, logger.System())
	broadcaster := messaging.NewReportBroadcaster(logger)
	pageViews := stores.NewPageViewStore(clk.Now, logger)

	return &Container{
		PageViewService: services.NewPageViewService(pageViews, broadcaster, flags, settings, clk, logger, perf),
		Logger:          logger,
		PerfTracker:     perf,
		Broadcaster:     broadcaster,
		PageViews:       pageViews,
		Settings:        settings,
		AdminToken:      adminToken,
		closers:         closers,
	}
}

// Close releases the flag store connections.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
