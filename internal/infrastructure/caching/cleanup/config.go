package cleanup

import (
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval  time.Duration
	PageViewTTL      time.Duration
	VerboseReporting bool
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:  config.CleanupInterval,
		PageViewTTL:      config.PageViewTTL,
		VerboseReporting: config.CleanupVerbose,
	}
}
