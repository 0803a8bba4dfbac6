// Command casd serves a local content-addressed document store over gRPC.
package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/JonMunkholm/sheetseal/internal/config"
	"github.com/JonMunkholm/sheetseal/internal/logging"
	"github.com/JonMunkholm/sheetseal/internal/storage/grpccas"
	"github.com/JonMunkholm/sheetseal/internal/storage/localfs"
)

func main() {
	_ = godotenv.Load()

	var (
		addr     = flag.String("addr", ":9090", "listen address")
		root     = flag.String("root", envOr("STORAGE_ROOT", "./data/cas"), "storage directory")
		maxMsg   = flag.String("max-msg", "64MB", "maximum message size")
		logLevel = flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	)
	flag.Parse()

	logging.Setup(*logLevel, envOr("LOG_FORMAT", "text"))

	maxBytes, err := config.ParseSize(*maxMsg)
	if err != nil {
		slog.Error("invalid -max-msg", "error", err)
		os.Exit(1)
	}

	cas, err := localfs.New(*root)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		slog.Error("failed to listen", "addr", *addr, "error", err)
		os.Exit(1)
	}

	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(int(maxBytes)),
		grpc.MaxSendMsgSize(int(maxBytes)),
	)
	grpccas.RegisterCASServer(srv, &grpccas.Server{CAS: cas})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down...")
		srv.GracefulStop()
	}()

	slog.Info("casd listening", "addr", lis.Addr().String(), "root", cas.Root())
	if err := srv.Serve(lis); err != nil {
		slog.Error("serve", "error", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
