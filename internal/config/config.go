// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `envconfig:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional PostgreSQL export target.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables table export.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `envconfig:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `envconfig:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `envconfig:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ExportTimeout bounds a single table export (default: 5m)
	ExportTimeout time.Duration `envconfig:"DB_EXPORT_TIMEOUT" default:"5m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// UploadConfig holds file ingestion settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `envconfig:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel ingestions (default: 4)
	MaxConcurrent int `envconfig:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an ingestion slot (default: 30s)
	MaxWaitTime time.Duration `envconfig:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single ingestion (default: 2m)
	Timeout time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"2m"`

	// Delimiter is the default field separator: a character or comma, tab,
	// semicolon, pipe (default: comma)
	Delimiter string `envconfig:"UPLOAD_DELIMITER" default:"comma"`
}

// SessionConfig holds in-memory session store settings.
type SessionConfig struct {
	// TTL is how long an idle session is kept (default: 2h)
	TTL time.Duration `envconfig:"SESSION_TTL" default:"2h"`

	// MaxSessions caps the number of live sessions (default: 100)
	MaxSessions int `envconfig:"SESSION_MAX" default:"100"`

	// SweepInterval is how often expired sessions are removed (default: 5m)
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// PreviewRows is how many rows the preview shows (default: 50)
	PreviewRows int `envconfig:"SESSION_PREVIEW_ROWS" default:"50"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `envconfig:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies List `envconfig:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `envconfig:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `envconfig:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys List `envconfig:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// List is a comma-separated environment value. Items are trimmed and blank
// items dropped.
type List []string

// Decode implements envconfig.Decoder.
func (l *List) Decode(value string) error {
	parts := strings.Split(value, ",")
	out := make(List, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}
