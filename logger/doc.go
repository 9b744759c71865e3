// Package logger provides structured logging for steamlens using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("caller")
//	log.Info("upstream call finished", logger.Fields("endpoint", ep, "status", 200))
package logger
