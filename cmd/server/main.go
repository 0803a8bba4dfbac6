package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetseal/internal/config"
	"github.com/JonMunkholm/sheetseal/internal/core"
	db "github.com/JonMunkholm/sheetseal/internal/database"
	"github.com/JonMunkholm/sheetseal/internal/logging"
	"github.com/JonMunkholm/sheetseal/internal/signature"
	"github.com/JonMunkholm/sheetseal/internal/storage"
	"github.com/JonMunkholm/sheetseal/internal/storage/grpccas"
	"github.com/JonMunkholm/sheetseal/internal/storage/localfs"
	"github.com/JonMunkholm/sheetseal/internal/web"
	"github.com/JonMunkholm/sheetseal/internal/workbook"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"convert_max_concurrent", cfg.Convert.MaxConcurrent,
		"storage_backend", cfg.Storage.Backend,
		"signing", cfg.Signing.KeyType != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := db.New(pool).EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	cas, closeCAS, err := openCAS(cfg.Storage)
	if err != nil {
		slog.Error("failed to open document storage", "error", err)
		os.Exit(1)
	}
	defer closeCAS.Close()

	signer, err := signature.Load(cfg.Signing.KeyType, cfg.Signing.KeyPath, cfg.Signing.KeyPassword)
	if err != nil {
		slog.Error("failed to load signing key", "error", err)
		os.Exit(1)
	}
	if signer != nil {
		slog.Info("signing enabled", "algorithm", signer.Algorithm())
	}

	var watermark *workbook.Image
	if cfg.Watermark.Image != "" {
		if watermark, err = workbook.LoadImage(cfg.Watermark.Image); err != nil {
			slog.Error("failed to load watermark", "error", err)
			os.Exit(1)
		}
	}

	service := core.NewService(core.Config{
		SheetName:     cfg.Convert.SheetName,
		Encoding:      cfg.Convert.InputEncoding,
		MaxFileSize:   cfg.Convert.MaxFileSize,
		Timeout:       cfg.Convert.Timeout,
		HashAlg:       cfg.Convert.HashAlg,
		WatermarkCell: cfg.Watermark.Cell,
	}, core.Deps{
		Store:     core.NewPgStore(pool),
		CAS:       cas,
		Signer:    signer,
		Watermark: watermark,
		Limiter:   core.NewConversionLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
	})

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetention(jobCtx, core.RetentionConfig{
		Days:          cfg.Retention.Days,
		BatchSize:     cfg.Retention.BatchSize,
		CheckInterval: cfg.Retention.CheckInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for conversions to complete", "active", active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openCAS builds the configured document store. A nil CAS disables
// document storage.
func openCAS(cfg config.StorageConfig) (storage.CAS, io.Closer, error) {
	switch cfg.Backend {
	case "none":
		slog.Info("document storage disabled")
		return nil, nopCloser{}, nil
	case "grpc":
		c, err := grpccas.Dial(cfg.GRPCTarget, grpccas.DialOptions{
			Timeout:     cfg.GRPCTimeout,
			MaxMsgBytes: int(cfg.GRPCMaxMsgBytes),
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("document storage", "backend", "grpc", "target", cfg.GRPCTarget)
		return c, c, nil
	case "localfs", "":
		c, err := localfs.New(cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("document storage", "backend", "localfs", "root", c.Root())
		return c, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
