// Package logger provides the module-wide zerolog logger. Callers may
// replace or disable it; by default it writes human-readable output to
// stdout.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger()

// Logger returns the current logger.
func Logger() zerolog.Logger {
	return logger
}

// Set replaces the module logger.
func Set(l zerolog.Logger) {
	logger = l
}

// Disable silences the module logger.
func Disable() {
	logger = zerolog.Nop()
}
