package main

import (
	"fmt"
	"time"

	"github.com/kbukum/modkit/config"
	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/validation"
)

// DemoConfig is the demo application's config.
type DemoConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Network              NetworkConfig `yaml:"network" mapstructure:"network"`
}

// NetworkConfig configures the network module.
type NetworkConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

var configKey = di.NewCapability[*DemoConfig](string(di.Base.Config))

func (c *DemoConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Network.BaseURL == "" {
		c.Network.BaseURL = "https://api.example.com"
	}
	if c.Network.Timeout == 0 {
		c.Network.Timeout = 5 * time.Second
	}
}

func (c *DemoConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Network); err != nil {
		return fmt.Errorf("config.network: %w", err)
	}
	return nil
}
