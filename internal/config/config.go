// Package config loads the service configuration from environment variables.
//
// Each field carries three tags: env names the variable, default supplies the
// value used when it is unset, and validate holds the rule checked by
// Validate. Only the database URL has no default.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Grid     GridConfig
	Leaders  LeadersConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080" validate:"min=1,max=65535"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" validate:"gte=0"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s" validate:"gte=0"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown, including the wait for
	// in-flight submission runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for ordinary requests. The
	// submit endpoint is exempt because a run outlives it (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true" validate:"required"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10" validate:"gt=0,gtefield=MinConns"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2" validate:"gte=0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// GridConfig holds bulk registration grid settings.
type GridConfig struct {
	// Size is the number of rows per grid (default: 10)
	Size int `env:"GRID_SIZE" default:"10" validate:"min=1,max=100"`

	// CallTimeout bounds each remote registration call (default: 15s)
	CallTimeout time.Duration `env:"GRID_CALL_TIMEOUT" default:"15s" validate:"gt=0"`

	// Placeholder values sent for attributes the grid does not collect
	PlaceholderSex      string `env:"GRID_PLACEHOLDER_SEX" default:"indefinido"`
	PlaceholderAge      int    `env:"GRID_PLACEHOLDER_AGE" default:"100" validate:"gte=0"`
	PlaceholderLocality string `env:"GRID_PLACEHOLDER_LOCALITY" default:"CDE"`

	// DefaultContact is written by the "default contact" row action
	DefaultContact string `env:"GRID_DEFAULT_CONTACT" default:"0970111222" validate:"number,min=10,max=11"`

	// SessionIdleTTL is how long an untouched grid is kept (default: 2h)
	SessionIdleTTL time.Duration `env:"GRID_SESSION_IDLE_TTL" default:"2h" validate:"gt=0"`

	// MaxConcurrentRuns caps submission runs across all grids (default: 4)
	MaxConcurrentRuns int `env:"GRID_MAX_CONCURRENT_RUNS" default:"4" validate:"gt=0"`

	// RunWaitTime is how long a submit waits for a free run slot (default: 10s)
	RunWaitTime time.Duration `env:"GRID_RUN_WAIT_TIME" default:"10s" validate:"gt=0"`
}

// LeadersConfig holds leader reference data settings.
type LeadersConfig struct {
	// CacheTTL is how long the leader list is served from memory (default: 30m)
	CacheTTL time.Duration `env:"LEADERS_CACHE_TTL" default:"30m" validate:"gt=0"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the general limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// SubmitPerMinute is the limit for submission runs per IP (default: 10)
	SubmitPerMinute int `env:"RATE_LIMIT_SUBMIT" default:"10"`

	// LoginPerMinute is the limit for sign-in attempts per IP (default: 10)
	LoginPerMinute int `env:"RATE_LIMIT_LOGIN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" validate:"dive,cidr|ip"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// CookieSecure marks session cookies Secure; disable only for local HTTP
	CookieSecure bool `env:"SECURITY_COOKIE_SECURE" default:"true"`

	// SessionTTL is the lifetime of a staff login (default: 12h)
	SessionTTL time.Duration `env:"SECURITY_SESSION_TTL" default:"12h" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// AuditConfig holds audit log retention and janitor settings.
type AuditConfig struct {
	// RetentionDays is how long audit entries are kept (default: 365)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"365" validate:"gt=0"`

	// JanitorInterval is how often expired grids, sessions and old audit
	// entries are cleaned up (default: 10m)
	JanitorInterval time.Duration `env:"AUDIT_JANITOR_INTERVAL" default:"10m" validate:"gt=0"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
