package config

import (
	"fmt"

	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/validation"
)

// ServiceConfig contains the configuration every modkit application needs.
// Applications extend it by embedding it in their own config structs.
//
// Example:
//
//	type DemoConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Network NetworkConfig `yaml:"network" mapstructure:"network"`
//	}
type ServiceConfig struct {
	Name          string              `yaml:"name" mapstructure:"name" validate:"required,ident"`
	Environment   string              `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version       string              `yaml:"version" mapstructure:"version"`
	Debug         bool                `yaml:"debug" mapstructure:"debug"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Container     ContainerConfig     `yaml:"container" mapstructure:"container"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Inspect       InspectConfig       `yaml:"inspect" mapstructure:"inspect"`
}

// GetServiceConfig returns the base ServiceConfig.
// When embedded in a larger config struct, this method is promoted
// so the embedding struct automatically satisfies bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	if c.Container.WarnOnOverride == nil {
		warn := c.Debug
		c.Container.WarnOnOverride = &warn
	}
	c.Observability.ApplyDefaults()
	c.Inspect.ApplyDefaults()
}

// WarnOnOverride reports whether registration overrides should be logged
// as warnings.
func (c *ServiceConfig) WarnOnOverride() bool {
	if c.Container.WarnOnOverride == nil {
		return c.Debug
	}
	return *c.Container.WarnOnOverride
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
