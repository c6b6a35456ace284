package cleanup

import (
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval    time.Duration
	VerboseReporting   bool
	FirstCollectionTTL time.Duration
	CollectionTTL      time.Duration
	StatsTTL           time.Duration
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:    config.CleanupInterval,
		VerboseReporting:   config.CleanupVerbose,
		FirstCollectionTTL: config.FirstCollectionTTL,
		CollectionTTL:      config.CollectionTTL,
		StatsTTL:           config.CollectionStatsTTL,
	}
}
