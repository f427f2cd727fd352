// Package config defines process configuration and per-instance settings.
//
// Conventions:
// - Keep fields koanf-tagged and provide New() with defaults.
// - Load layers defaults, an optional YAML file, and environment.
// - External errors are wrapped via this package's sentinel errors.
package config

// Config contains process-wide configuration. Per-actor tuning lives in
// the model document's settings section instead.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the prometheus listen address, e.g. ":9090".
	// Empty disables the metrics listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// ConduitCapacity bounds every conduit's message buffer.
	ConduitCapacity int `koanf:"conduit_capacity"`

	// ReportDir is where limit-check reports are written.
	ReportDir string `koanf:"report_dir"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		MetricsAddr:     "",
		ConduitCapacity: 1024,
		ReportDir:       ".",
	}
}
