// Package logger provides structured logging for speakerid using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying structured fields such as the run id
// or the segment being processed.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("matcher")
//	log.Info("segment accepted", logger.Fields("segment", 12, "identity", "alice"))
package logger
