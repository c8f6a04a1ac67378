package executor

import "fmt"

// graceful.go provides helpers for graceful degradation: warn about errors
// but keep the suite running.

// GracefulWarn logs a warning if logger is non-nil, using the given format and args.
//
// Usage:
//
//	if err := sleepCtx(ctx, delay); err != nil {
//	    GracefulWarn(r.logger, "inter-test delay interrupted: %v", err)
//	}
func GracefulWarn(logger Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.LogWarn(fmt.Sprintf(format, args...))
	}
}

// GracefulInfo logs an info message if logger is non-nil.
// Companion to GracefulWarn for consistent logger nil-checking.
func GracefulInfo(logger Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.LogInfo(fmt.Sprintf(format, args...))
	}
}
