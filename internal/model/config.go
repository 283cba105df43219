package model

import "time"

// ScanConfig bounds one scan. Immutable once handed to the orchestrator;
// callers merge overrides over DefaultScanConfig.
//
// The three timeouts are layered: RequestTimeout < ProbeTimeout <
// GlobalTimeout, so a probe can always finish at least one full step
// before its wrapper cuts it off, and the bundle can always finish at
// least one full probe before the scan deadline fires.
type ScanConfig struct {
	// RequestTimeout bounds a single HTTP call inside a probe or analyzer.
	RequestTimeout time.Duration `json:"request_timeout"`

	// ProbeTimeout bounds one protocol's whole fallback chain.
	ProbeTimeout time.Duration `json:"probe_timeout"`

	// GlobalTimeout bounds the entire fan-out bundle.
	GlobalTimeout time.Duration `json:"global_timeout"`

	// FreshnessWindow is how young a completed scan must be to satisfy a
	// skip-if-fresh request.
	FreshnessWindow time.Duration `json:"freshness_window"`

	// UserAgent is sent on every outbound request.
	UserAgent string `json:"user_agent"`

	// RegistryURL is the x402 discovery registry endpoint.
	RegistryURL string `json:"registry_url"`
}

// DefaultScanConfig returns the production defaults.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		RequestTimeout:  4 * time.Second,
		ProbeTimeout:    8 * time.Second,
		GlobalTimeout:   15 * time.Second,
		FreshnessWindow: 7 * 24 * time.Hour,
		UserAgent:       "paylens-scanner/1.0 (+https://github.com/paylens/paylens)",
		RegistryURL:     "https://api.x402scan.com/resources",
	}
}

// Merge returns c with any zero fields filled in from defaults.
func (c ScanConfig) Merge(defaults ScanConfig) ScanConfig {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = defaults.ProbeTimeout
	}
	if c.GlobalTimeout == 0 {
		c.GlobalTimeout = defaults.GlobalTimeout
	}
	if c.FreshnessWindow == 0 {
		c.FreshnessWindow = defaults.FreshnessWindow
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.RegistryURL == "" {
		c.RegistryURL = defaults.RegistryURL
	}
	return c
}
