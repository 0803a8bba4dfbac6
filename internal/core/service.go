package core

import (
	"time"

	"github.com/JonMunkholm/sheetseal/internal/csvin"
	"github.com/JonMunkholm/sheetseal/internal/signature"
	"github.com/JonMunkholm/sheetseal/internal/storage"
	"github.com/JonMunkholm/sheetseal/internal/workbook"
)

// DefaultConvertTimeout bounds a single conversion end to end.
var DefaultConvertTimeout = 2 * time.Minute

// Config holds conversion defaults. Zero values fall back to package defaults.
type Config struct {
	SheetName     string
	Encoding      string
	MaxFileSize   int64 // bytes; 0 disables the limit
	Timeout       time.Duration
	HashAlg       string // signature digest algorithm
	WatermarkCell string
}

// Deps are the optional collaborators of a Service. Any nil field disables
// the step that needs it, so the offline CLI runs with an empty Deps.
type Deps struct {
	Store     ConversionStore
	CAS       storage.CAS
	Signer    signature.Signer
	Watermark *workbook.Image
	Limiter   *ConversionLimiter
}

// Service converts CSV files into verified workbooks and keeps their ledger.
type Service struct {
	cfg  Config
	deps Deps
}

// NewService fills in defaults and returns a ready Service.
func NewService(cfg Config, deps Deps) *Service {
	if cfg.SheetName == "" {
		cfg.SheetName = workbook.DefaultSheet
	}
	if cfg.Encoding == "" {
		cfg.Encoding = csvin.DefaultEncoding
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConvertTimeout
	}
	if cfg.HashAlg == "" {
		cfg.HashAlg = signature.DefaultHash
	}
	if cfg.WatermarkCell == "" {
		cfg.WatermarkCell = workbook.DefaultWatermarkCell
	}
	if deps.Limiter == nil {
		deps.Limiter = NewConversionLimiter(DefaultMaxConcurrentConversions, DefaultMaxWaitTime)
	}
	return &Service{cfg: cfg, deps: deps}
}

// Limiter exposes the conversion limiter for status reporting and shutdown.
func (s *Service) Limiter() *ConversionLimiter {
	return s.deps.Limiter
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Signing reports whether converted documents get a signature envelope.
func (s *Service) Signing() bool {
	return s.deps.Signer != nil
}
