// Package observability builds the logger and metrics shared by the CLI and
// the relay server.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger configures zerolog with service metadata, writing to stderr so
// command output on stdout stays clean.
func NewLogger(service, level string, pretty bool) zerolog.Logger {
	return NewLoggerTo(os.Stderr, service, level, pretty)
}

// NewLoggerTo is NewLogger with an explicit destination.
func NewLoggerTo(out io.Writer, service, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var writer zerolog.Logger
	if pretty {
		console := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
		writer = zerolog.New(console)
	} else {
		writer = zerolog.New(out)
	}

	return writer.Level(lvl).With().Timestamp().Str("service", service).Logger()
}
