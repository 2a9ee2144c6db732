package logger

import (
	"os"
	"sync"
)

var (
	global *Logger
	once   sync.Once
)

// GetLogger returns the process-wide logger, building an env-driven default
// on first use when no entry point has installed one yet.
func GetLogger() *Logger {
	once.Do(func() {
		if global == nil {
			level := "info"
			if os.Getenv("DEBUG") == "true" {
				level = "debug"
			} else if v := os.Getenv("LOG_LEVEL"); v != "" {
				level = v
			}
			global = New(Config{Level: level, Format: "json", Output: "stdout"})
		}
	})
	return global
}

// SetLogger installs the process-wide logger.
func SetLogger(logger *Logger) {
	global = logger
}

// Warn logs a warning on the process-wide logger.
func Warn(msg string) {
	GetLogger().Warn(msg)
}

// WithError returns the process-wide logger carrying err.
func WithError(err error) *Logger {
	return GetLogger().WithError(err)
}
