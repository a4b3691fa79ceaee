// Package config loads modkit application configuration.
//
// Values come from a config.yml found under ./cmd/<app>/ (or ./config/),
// an optional .env file, and the process environment, in increasing order
// of precedence. Environment variables map onto nested keys by splitting on
// underscores, so CONTAINER_WARN_ON_OVERRIDE sets container.warn_on_override
// and OBSERVABILITY_ENDPOINT sets observability.endpoint.
//
// # Usage
//
//	var cfg DemoConfig
//	if err := config.LoadConfig("modkit-demo", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
