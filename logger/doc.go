// Package logger provides structured logging for resilkit components
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields. The resilience package
// logs breaker transitions, retries, and rejections through a component
// logger obtained from this package.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("resilience")
//	log.Warn("circuit opened", logger.Fields("breaker", "payments"))
package logger
