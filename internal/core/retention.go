package core

// retention.go runs the ledger retention job.
//
// Conversion rows older than the retention window are deleted in batches so a
// large backlog never holds a long lock. The job is context-aware for
// graceful shutdown and logs failures without stopping the application.
// Stored documents are content-addressed and may be shared between
// conversions, so the CAS is left alone.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds the retention job settings. Zero values use defaults.
type RetentionConfig struct {
	Days          int           // age after which rows are deleted (default: 90)
	BatchSize     int           // rows per delete statement (default: 5000)
	CheckInterval time.Duration // how often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.Days <= 0 {
		c.Days = 90
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetention runs the retention job immediately and then every
// CheckInterval until ctx is cancelled. It blocks; run it in a goroutine.
func (s *Service) StartRetention(ctx context.Context, cfg RetentionConfig) {
	if s.deps.Store == nil {
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("retention job started",
		"retention_days", cfg.Days,
		"batch_size", cfg.BatchSize,
		"interval", cfg.CheckInterval,
	)

	s.runRetention(ctx, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped")
			return
		case now := <-ticker.C:
			s.runRetention(ctx, cfg, now)
		}
	}
}

// runRetention deletes batches until one comes back short.
func (s *Service) runRetention(ctx context.Context, cfg RetentionConfig, now time.Time) int64 {
	start := time.Now()
	cutoff := now.AddDate(0, 0, -cfg.Days)

	var total int64
	for ctx.Err() == nil {
		n, err := s.deps.Store.DeleteConversionsBefore(ctx, cutoff, cfg.BatchSize)
		if err != nil {
			slog.Error("retention delete failed", "error", err)
			break
		}
		total += n
		if n < int64(cfg.BatchSize) {
			break
		}
	}

	slog.Info("retention job completed",
		"rows_deleted", total,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total
}
