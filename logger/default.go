package logger

import (
	"os"
)

//nolint:revive // Explicit type is useful for documentation
var dLog ILogger = NewConsoleLogger(os.Stdout)

// SetDefaultLogger sets the default logger.
func SetDefaultLogger(logger ILogger) {
	if logger != nil {
		dLog = logger
	}
}

// GetDefaultLogger returns the default logger.
//
//nolint:ireturn // Returns interface to hide implementation details
func GetDefaultLogger() ILogger {
	return dLog
}

// Trace logs a message at the Trace level using the default logger. args is
// spread into the call rather than passed as a single slice element, so
// Trace("a", "b", "c") reads as three fields, not "a" followed by a
// bracketed slice.
func Trace(msg string, args ...interface{}) {
	dLog.Trace(append([]interface{}{msg}, args...)...)
}

// Debug logs a message at the Debug level using the default logger.
func Debug(msg string, args ...interface{}) {
	dLog.Debug(append([]interface{}{msg}, args...)...)
}

// Info logs a message at the Info level using the default logger.
func Info(msg string, args ...interface{}) {
	dLog.Info(append([]interface{}{msg}, args...)...)
}

// Warning logs a message at the Warning level using the default logger.
func Warning(msg string, args ...interface{}) {
	dLog.Warning(append([]interface{}{msg}, args...)...)
}

// Error logs a message at the Error level using the default logger.
func Error(msg string, args ...interface{}) {
	dLog.Error(append([]interface{}{msg}, args...)...)
}

// Panic logs a message at the Panic level using the default logger.
func Panic(msg string, args ...interface{}) {
	dLog.Panic(append([]interface{}{msg}, args...)...)
}

// Fatal logs a message at the Fatal level using the default logger and
// terminates the process.
func Fatal(msg string, args ...interface{}) {
	dLog.Fatal(append([]interface{}{msg}, args...)...)
}
