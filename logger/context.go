package logger

import (
	"context"
	"os"
)

type loggerKey struct{}

// NewContextWithLogger returns a new context with the logger attached to it.
func NewContextWithLogger(ctx context.Context, ilogger ILogger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(loggerKey{}).(ILogger); ok {
		// Keep the logger ctx already carries; do not replace it.
		return ctx
	}

	return context.WithValue(ctx, loggerKey{}, ilogger)
}

// Explicit type is useful for documentation
var ctxFallbackLogger ILogger = NewConsoleLogger(os.Stdout)

// SetCtxFallbackLogger sets the fallback logger to be used when no logger is found in the context.
func SetCtxFallbackLogger(logger ILogger) {
	ctxFallbackLogger = logger
}

// FromCtx returns the Logger associated with the ctx. If no logger
// is associated, CtxFallbackLogger is returned. Use SetCtxFallbackLogger to change it.
func FromCtx(ctx context.Context) ILogger {
	if l, ok := ctx.Value(loggerKey{}).(ILogger); ok {
		return l
	}
	return ctxFallbackLogger
}

// WithSubLogger attaches a sub-logger of whatever logger ctx already carries
// (or of the fallback logger, if none) to a derived context in one step, so
// a caller doesn't need a separate FromCtx/SubLogger/context.WithValue
// sequence just to add a component label partway down a call chain. Unlike
// NewContextWithLogger, it always attaches, even if ctx already carries one,
// since narrowing to a sub-logger deeper in a call chain is the whole point.
func WithSubLogger(ctx context.Context, format string, args ...any) context.Context {
	return context.WithValue(ctx, loggerKey{}, FromCtx(ctx).SubLogger(format, args...))
}
