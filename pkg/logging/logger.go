// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

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

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Components that derive
// their logger from the global one, such as the client, pick it up.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a user-supplied level name. Unknown names yield LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "disabled", "off", "none":
		return LevelDisabled
	default:
		return LevelInfo
	}
}

func parseLevel(level LogLevel) zerolog.Level {
	switch ParseLevel(string(level)) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelDisabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Request flow (URL, attempt, status)
//   - Page fetches and iteration stop reasons
//   - Cooldown waits
//
// Info: Normal operation events
//   - Requests that succeeded after a retry
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts and exhausted retries
//   - Recorded Retry-After cooldowns
//   - Circuit breaker state changes
//   - Undecodable response payloads
//
// Error: Error conditions requiring attention
//   - Failed CLI commands
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package or command
//   - endpoint: jobs, jobdetails, logo
//   - request_id: X-Request-ID shared by all attempts of one request
//   - status_code: HTTP status code
//   - error_kind: unauthorized, forbidden, not_found, method_not_allowed,
//     rate_limited, server_fault, transport
//   - attempt: 1-based attempt number
//   - backoff, retry_after: wait durations
//   - page, page_size: pagination position
