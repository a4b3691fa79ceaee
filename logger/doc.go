// Package logger provides structured logging for modkit applications
// using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. The dependency container
// logs through a logger tagged with component "di".
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("settings")
//	log.Info("screen built", logger.Fields("capability", "settings.screen"))
package logger
