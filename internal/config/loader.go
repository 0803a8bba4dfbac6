package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with values taken from getenv instead of the process
// environment. Empty values count as unset.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct fills the tagged fields of v, descending into nested sections.
//
// Tags: env (name), envAlt (fallback name), default, required:"true", and
// unit:"bytes" for sizes with a KB/MB/GB suffix.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		value := getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = getenv(alt)
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		var err error
		if field.Tag.Get("unit") == "bytes" {
			var n int64
			if n, err = ParseSize(value); err == nil {
				fieldVal.SetInt(n)
			}
		} else {
			err = setField(fieldVal, value)
		}
		if err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}
	return nil
}

// setField parses value into field according to its kind. Slices of
// strings are comma separated.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(value)
	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var list []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// sizeUnits are the suffixes accepted by ParseSize, longest first.
var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a byte count such as "1048576", "512KB" or "50MB".
func ParseSize(value string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size: negative")
	}
	return n * mult, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Convert validation
	if c.Convert.MaxFileSize <= 0 {
		errs = append(errs, "CONVERT_MAX_FILE_SIZE must be positive")
	}
	if c.Convert.MaxConcurrent <= 0 {
		errs = append(errs, "CONVERT_MAX_CONCURRENT must be positive")
	}
	if c.Convert.MaxWaitTime <= 0 {
		errs = append(errs, "CONVERT_MAX_WAIT_TIME must be positive")
	}
	if c.Convert.Timeout <= 0 {
		errs = append(errs, "CONVERT_TIMEOUT must be positive")
	}
	if !oneOf(c.Convert.HashAlg, "sha256", "sha512", "sha3-256") {
		errs = append(errs, fmt.Sprintf("CONVERT_HASH_ALG (%q) must be one of: sha256, sha512, sha3-256", c.Convert.HashAlg))
	}

	// Storage validation
	switch strings.ToLower(c.Storage.Backend) {
	case "localfs":
		if c.Storage.Root == "" {
			errs = append(errs, "STORAGE_ROOT is required for the localfs backend")
		}
	case "grpc":
		if c.Storage.GRPCTarget == "" {
			errs = append(errs, "STORAGE_GRPC_TARGET is required for the grpc backend")
		}
		if c.Storage.GRPCMaxMsgBytes < c.Convert.MaxFileSize {
			errs = append(errs, "STORAGE_GRPC_MAX_MSG_BYTES must be >= CONVERT_MAX_FILE_SIZE")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND (%q) must be one of: localfs, grpc, none", c.Storage.Backend))
	}

	// Signing validation
	if !oneOf(c.Signing.KeyType, "", "pkcs12", "dilithium3") {
		errs = append(errs, fmt.Sprintf("SIGNING_KEY_TYPE (%q) must be empty, pkcs12 or dilithium3", c.Signing.KeyType))
	}
	if c.Signing.KeyType != "" && c.Signing.KeyPath == "" {
		errs = append(errs, "SIGNING_KEY_PATH is required when SIGNING_KEY_TYPE is set")
	}

	// Watermark validation
	if c.Watermark.Image != "" {
		if _, _, err := excelize.CellNameToCoordinates(c.Watermark.Cell); err != nil {
			errs = append(errs, fmt.Sprintf("WATERMARK_CELL (%q) is not a cell reference", c.Watermark.Cell))
		}
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ConvertLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_CONVERT must be positive when rate limiting is enabled")
	}

	// Retention validation
	if c.Retention.Days <= 0 {
		errs = append(errs, "RETENTION_DAYS must be positive")
	}
	if c.Retention.BatchSize <= 0 {
		errs = append(errs, "RETENTION_BATCH_SIZE must be positive")
	}
	if c.Retention.CheckInterval <= 0 {
		errs = append(errs, "RETENTION_CHECK_INTERVAL must be positive")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	if !oneOf(strings.ToLower(c.Logging.Level), "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	if !oneOf(strings.ToLower(c.Logging.Format), "text", "json") {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// String returns a safe string representation of the config for logging.
// Sensitive values (database URL, key password, API keys) are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Convert: {MaxFileSize: %d, MaxConcurrent: %d, Sheet: %q, Encoding: %q}, ",
		c.Convert.MaxFileSize, c.Convert.MaxConcurrent, c.Convert.SheetName, c.Convert.InputEncoding)
	fmt.Fprintf(&b, "Storage: {Backend: %q}, ", c.Storage.Backend)
	fmt.Fprintf(&b, "Signing: {KeyType: %q, KeyPath: %q, KeyPassword: %s}, ",
		c.Signing.KeyType, c.Signing.KeyPath, mask(c.Signing.KeyPassword))
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d [MASKED]}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}
