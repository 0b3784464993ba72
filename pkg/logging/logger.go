// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Format selects the log encoding.
type Format string

const (
	// FormatAuto uses console output on a terminal and JSON otherwise.
	FormatAuto Format = "auto"

	// FormatJSON always writes one JSON object per line.
	FormatJSON Format = "json"

	// FormatPretty always writes human-readable console output.
	FormatPretty Format = "pretty"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Format selects JSON or console output (default: auto).
	Format Format

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatAuto,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	output := cfg.Output
	if pretty(cfg.Format, cfg.Output) {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(cfg.Output),
		}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	log.Logger = logger

	return logger
}

// pretty reports whether console output should be used for w.
func pretty(format Format, w io.Writer) bool {
	switch Format(strings.ToLower(string(format))) {
	case FormatPretty:
		return true
	case FormatJSON:
		return false
	}

	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether format names a known log format.
func ValidFormat(format string) bool {
	switch Format(strings.ToLower(format)) {
	case FormatAuto, FormatJSON, FormatPretty:
		return true
	}
	return false
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Request flow (URL, page number, attempt)
//   - Rate limit state reads
//   - Endpoint fallback decisions
//
// Info: Normal operation events
//   - Courses selected for the report
//   - Report written
//   - Shared cooldowns started
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts (429, 5xx)
//   - Rate limit bucket low (throttling active)
//   - A course whose assignments could not be fetched
//   - Non-object elements in a list response
//
// Error: Error conditions requiring attention
//   - Failed requests after retries
//   - Configuration errors
//
// Context Fields:
//   - component: package emitting the event (client, pagination, canvas, schedule, app)
//   - url: request URL
//   - status_code: HTTP status code
//   - attempt: retry attempt number
//   - wait: time slept before the next attempt
//   - course_id: Canvas course ID
//   - remaining: Canvas rate limit quota (X-Rate-Limit-Remaining)
