// Package logger provides structured logging for edgecam using zerolog.
//
// Loggers are scoped by component, and pipeline code further tags them with
// the stage or task name so a single run can be followed across goroutines.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("capture").WithStage("frames")
//	log.Info("stage started", logger.Fields(logger.FieldSeq, 42))
package logger
