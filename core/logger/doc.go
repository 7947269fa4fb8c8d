// Package logger builds the zap logger shared by the commands, the sync providers and
// the HTTP handlers.
//
// Config selects the minimum level (debug, info, warn, error) and the encoding. JSON is
// the default; console is meant for terminals. An unknown level is a configuration
// error rather than a silent fallback.
//
// Handlers log through WithRayID so entries of one request carry the id assigned by the
// rayid middleware:
//
//	log, err := logger.New(&cfg.Log)
//	...
//	logger.WithRayID(log, c).Error("Refresh failed", zap.Error(err))
package logger
