// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Convert   ConvertConfig
	Storage   StorageConfig
	Signing   SigningConfig
	Watermark WatermarkConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	// MaxFileSize caps an uploaded CSV, with an optional KB/MB/GB suffix (default: 50MB)
	MaxFileSize int64 `env:"CONVERT_MAX_FILE_SIZE" default:"50MB" unit:"bytes"`

	// MaxConcurrent is the number of conversions allowed in flight (default: 4)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single conversion (default: 2m)
	Timeout time.Duration `env:"CONVERT_TIMEOUT" default:"2m"`

	// SheetName names the worksheet in produced workbooks (default: data)
	SheetName string `env:"CONVERT_SHEET_NAME" default:"data"`

	// InputEncoding is the default CSV encoding (default: utf-8)
	InputEncoding string `env:"CONVERT_INPUT_ENCODING" default:"utf-8"`

	// HashAlg is the signature digest: sha256, sha512 or sha3-256 (default: sha512)
	HashAlg string `env:"CONVERT_HASH_ALG" default:"sha512"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	// Backend is localfs, grpc or none (default: localfs)
	Backend string `env:"STORAGE_BACKEND" default:"localfs"`

	// Root is the localfs directory (default: ./data/cas)
	Root string `env:"STORAGE_ROOT" default:"./data/cas"`

	// GRPCTarget is the address of a CAS daemon, required for the grpc backend
	GRPCTarget string `env:"STORAGE_GRPC_TARGET"`

	// GRPCTimeout bounds each CAS call (default: 30s)
	GRPCTimeout time.Duration `env:"STORAGE_GRPC_TIMEOUT" default:"30s"`

	// GRPCMaxMsgBytes caps gRPC messages in both directions (default: 64MB)
	GRPCMaxMsgBytes int64 `env:"STORAGE_GRPC_MAX_MSG_BYTES" default:"64MB" unit:"bytes"`
}

// SigningConfig holds the detached signature key.
type SigningConfig struct {
	// KeyType is empty (no signing), pkcs12 or dilithium3
	KeyType string `env:"SIGNING_KEY_TYPE"`

	// KeyPath is the key file, required when KeyType is set
	KeyPath string `env:"SIGNING_KEY_PATH"`

	// KeyPassword unlocks a pkcs12 key file
	KeyPassword string `env:"SIGNING_KEY_PASSWORD"`
}

// WatermarkConfig holds the optional watermark image.
type WatermarkConfig struct {
	// Image is the path of a PNG, JPEG, GIF, BMP or TIFF file; empty disables
	Image string `env:"WATERMARK_IMAGE"`

	// Cell anchors the image (default: B2)
	Cell string `env:"WATERMARK_CELL" default:"B2"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ConvertLimit is requests per minute for convert and audit endpoints (default: 10)
	ConvertLimit int `env:"RATE_LIMIT_CONVERT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RetentionConfig holds ledger retention settings.
type RetentionConfig struct {
	// Days is how long conversion records are kept (default: 90)
	Days int `env:"RETENTION_DAYS" default:"90"`

	// BatchSize is rows deleted per statement (default: 5000)
	BatchSize int `env:"RETENTION_BATCH_SIZE" default:"5000"`

	// CheckInterval is how often the retention job runs (default: 24h)
	CheckInterval time.Duration `env:"RETENTION_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
