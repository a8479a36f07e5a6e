// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The session manager takes a *zap.Logger; pass Logger.Logger, or nil for
// a silent manager. Task lifecycle is logged at debug level, filesystem
// cleanup failures at warn.
//
// Example Usage:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Logging))
//	if err != nil {
//		logger = logging.NewDefault()
//	}
//	defer logger.Sync()
//	logger.Info("download finished", zap.String("path", path))
package logging
