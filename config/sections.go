package config

import "time"

// ContainerConfig configures the capability container.
type ContainerConfig struct {
	// ID overrides the generated container id. Must be a UUID when set.
	ID string `yaml:"id" mapstructure:"id" validate:"omitempty,uuid"`
	// WarnOnOverride logs a warning when a registration replaces another.
	// Defaults to the service debug flag.
	WarnOnOverride *bool `yaml:"warn_on_override" mapstructure:"warn_on_override"`
}

// ObservabilityConfig configures OTLP tracing and metrics export.
type ObservabilityConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required,hostname_port"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ApplyDefaults fills unset observability fields.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// InspectConfig configures the read-only container inspection endpoint.
type InspectConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
}

// ApplyDefaults fills unset inspect fields.
func (c *InspectConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8089"
	}
}
