// Package shared holds helpers common to the rpsbet subcommands.
package shared

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// SetupLogger returns a console zerolog logger at info level, or debug when
// asked. This is the logger the interactive subcommands use.
func SetupLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger returns a JSON zerolog logger for non-interactive
// runs where the output gets collected rather than read.
func SetupStructuredLogger(debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a config log level onto a zerolog level, defaulting to
// info for anything unrecognised.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
