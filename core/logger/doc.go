// Package logger provides slog attribute helpers shared across the client
// core. Helpers return an empty slog.Attr for nil or zero inputs, so call
// sites never need explicit nil checks:
//
//	log.Warn("secondary substrate write failed",
//		logger.Substrate("encrypted"),
//		logger.Error(err),
//	)
//
// Components accept a *slog.Logger through their options and default to a
// discard logger, so library code never writes to a logger it was not given.
package logger
