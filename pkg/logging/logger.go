// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelTrace logs everything.
	LevelTrace LogLevel = "trace"

	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Caller adds the file and line of each log call.
	Caller bool

	// Output is the writer to output logs to (os.Stderr when nil).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. Loggers created
// with NewLogger afterwards inherit its output and fields.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp().Str("client", "planet-client-go")
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels map to info.
func parseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// NewLogger creates a logger for component from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// secretParams are query parameters whose values never reach the log.
var secretParams = []string{"api_key"}

// RedactURL renders u for logging. Passwords and API keys in the query are
// replaced by "xxxxx".
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	redacted := false
	for _, name := range secretParams {
		if q.Has(name) {
			q.Set(name, "xxxxx")
			redacted = true
		}
	}
	if !redacted {
		return u.Redacted()
	}

	clone := *u
	clone.RawQuery = q.Encode()
	return clone.Redacted()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Request flow (conditional requests, ETags, retries scheduled)
//   - Every fetched page of a pagination run
//
// Info: Normal operation events
//   - Finished pagination runs (outcome, pages, items)
//   - Retried requests that eventually succeeded
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit warnings (throttling active)
//   - Circuit breaker state changes
//   - Cache or Redis errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Network failures
//   - Critical rate limit blocks
//
// Context Fields:
//   - component: planet-client, pagination, items, scenes, cache, ratelimit
//   - request_id: X-Request-Id sent with the request
//   - method, url: request line (url passed through RedactURL)
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - key, page, items, total, outcome: pagination progress
//   - remaining, reset_at: rate limit window
