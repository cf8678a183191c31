// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Script output written through the adb capability goes through the same
// logger under the "adb" name, so host and script logs share one sink.
//
// Example Usage:
//
//	logger := logging.NewFromLevel("info", false)
//	logger.Info("Host started", zap.String("host_id", id))
//	logger.Script("sample.js").Error("Uncaught exception", zap.Error(err))
package logging
