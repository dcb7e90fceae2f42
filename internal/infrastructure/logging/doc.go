// Package logging provides structured logging for Armadillo Core.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on every entry
//   - Level-based filtering (debug, info, warn, error)
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("telemetry stored", "kind", "bike", "device_id", 7)
//
// MQTT passwords and InfluxDB tokens must never be logged.
package logging
