// Package config provides centralized configuration management for the
// application. It loads settings from environment variables with
// sensible defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Paths    PathsConfig
	Build    BuildConfig
	Fetch    FetchConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"COVIDFEED_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"COVIDFEED_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"COVIDFEED_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"COVIDFEED_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"COVIDFEED_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"COVIDFEED_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"COVIDFEED_REQUEST_TIMEOUT" default:"60s"`
}

// PathsConfig holds the input and output directory layout.
type PathsConfig struct {
	// InputDir is where source CSV files are cached (default: input)
	InputDir string `env:"COVIDFEED_INPUT_DIR" default:"input"`

	// OutputDir is the root of the generated JSON tree (default: data)
	OutputDir string `env:"COVIDFEED_OUTPUT_DIR" default:"data"`
}

// BuildConfig holds reshaping and rebuild trigger settings.
type BuildConfig struct {
	// DateKey is the render layout for date-like headers
	// (default: d_20060102, a Go reference-time layout)
	DateKey string `env:"COVIDFEED_DATE_KEY" default:"d_20060102"`

	// ScheduleSpec is an optional cron expression for automatic
	// rebuilds; empty disables the scheduler
	ScheduleSpec string `env:"COVIDFEED_SCHEDULE"`

	// WatchInput enables rebuild-on-change for the input directory
	WatchInput bool `env:"COVIDFEED_WATCH_INPUT" default:"false"`

	// WatchDebounce is how long the watcher waits after the last
	// change before rebuilding (default: 500ms)
	WatchDebounce time.Duration `env:"COVIDFEED_WATCH_DEBOUNCE" default:"500ms"`
}

// FetchConfig holds source download settings.
type FetchConfig struct {
	// Timeout bounds a single source download (default: 2m)
	Timeout time.Duration `env:"COVIDFEED_FETCH_TIMEOUT" default:"2m"`

	// MaxBytes caps the size of a downloaded source (default: 64MB)
	MaxBytes int64 `env:"COVIDFEED_FETCH_MAX_BYTES" default:"67108864"`

	// Refresh is how long a cached source file stays fresh before a
	// run downloads it again (default: 6h)
	Refresh time.Duration `env:"COVIDFEED_FETCH_REFRESH" default:"6h"`
}

// RateLimitConfig holds per-IP rate limiting for mutating routes.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"COVIDFEED_RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP (default: 60)
	RequestsPerMinute int `env:"COVIDFEED_RATE_LIMIT_PER_MINUTE" default:"60"`
}

// SecurityConfig holds API protection settings.
type SecurityConfig struct {
	// TrustedProxies lists proxy IPs or CIDRs whose X-Real-IP and
	// X-Forwarded-For headers are believed; comma-separated. Empty
	// means no proxy headers are trusted.
	TrustedProxies []string `env:"COVIDFEED_TRUSTED_PROXIES"`

	// RequireAPIKey gates the mutating routes behind X-API-Key
	// (default: false)
	RequireAPIKey bool `env:"COVIDFEED_REQUIRE_API_KEY" default:"false"`

	// APIKeys lists the accepted API keys; comma-separated
	APIKeys []string `env:"COVIDFEED_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"COVIDFEED_LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"COVIDFEED_LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// SourceOverride returns the source URL override for a dataset key,
// read from COVIDFEED_SOURCE_<KEY> (key uppercased). Returns "" when
// not set.
func SourceOverride(key string) string {
	return os.Getenv("COVIDFEED_SOURCE_" + strings.ToUpper(key))
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
