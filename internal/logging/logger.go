// Package logging configures log/slog for sheetseal and derives per-request
// and per-conversion loggers from a context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// redacted replaces the value of any attribute whose key names a secret.
const redacted = "[REDACTED]"

// secretKeys are attribute keys never written in clear. Workbook passwords
// and keystore passwords travel through request structs that get logged
// on failure.
var secretKeys = map[string]bool{
	"password":     true,
	"key_password": true,
	"api_key":      true,
}

// Setup installs the process-wide logger writing to stdout.
//
// Level is debug, info, warn or error; format is text or json. Unknown
// values fall back to info and text.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. Secret attributes are redacted.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] && a.Value.String() != "" {
		return slog.String(a.Key, redacted)
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger, tagged with the chi request id
// when ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields is FromContext plus extra attributes.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// ForConversion returns the logger used for a single conversion. Every entry
// carries the conversion id and source file name alongside the request id.
func ForConversion(ctx context.Context, conversionID, fileName string) *slog.Logger {
	return WithFields(ctx,
		"conversion_id", conversionID,
		"file", fileName,
	)
}

// ForAudit returns the logger for one workbook audit, keyed by the
// fingerprint of the CSV being checked.
func ForAudit(ctx context.Context, sourceFingerprint string) *slog.Logger {
	return WithFields(ctx, "op", "audit", "source_fingerprint", sourceFingerprint)
}
