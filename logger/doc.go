// Package logger provides structured logging for gohost using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields. A Factory hands out named
// loggers; the host passes one to the Startup so user code never reaches for
// a global.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := loggers.Get("orders")
//	log.Info("order accepted", logger.Fields("id", id))
package logger
