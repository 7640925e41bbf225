package metrics

import "github.com/kilianp07/fleetops/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Path is where the Prometheus handler is mounted.
	Path string `json:"path"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
