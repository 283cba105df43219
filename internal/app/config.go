package app

import (
	"time"

	"github.com/paylens/paylens/internal/model"
)

// Config contains the runtime configuration the orchestrator needs.
type Config struct {
	// Scan bounds every scan this orchestrator runs. Per-call overrides
	// are merged over it.
	Scan model.ScanConfig

	// JobRetentionTime is how long finished async jobs stay queryable.
	JobRetentionTime time.Duration
}

// DefaultConfig returns a Config populated with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan:             model.DefaultScanConfig(),
		JobRetentionTime: 15 * time.Minute,
	}
}
