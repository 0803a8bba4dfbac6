// Command sheetseal converts a directory of CSV files into verified XLSX
// workbooks without a database or document store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/JonMunkholm/sheetseal/internal/core"
	"github.com/JonMunkholm/sheetseal/internal/logging"
	"github.com/JonMunkholm/sheetseal/internal/signature"
	"github.com/JonMunkholm/sheetseal/internal/workbook"
)

func main() {
	var (
		in          = flag.String("in", ".", "directory of CSV files")
		out         = flag.String("out", "", "output directory (default: same as -in)")
		sheet       = flag.String("sheet", workbook.DefaultSheet, "worksheet name")
		encoding    = flag.String("encoding", "", "input encoding (default utf-8)")
		password    = flag.String("password", "", "encrypt workbooks with this password")
		keyType     = flag.String("key-type", "", "signing key type: pkcs12 or dilithium3")
		keyPath     = flag.String("key", "", "signing key file")
		keyPassword = flag.String("key-password", "", "signing keystore password")
		watermark   = flag.String("watermark", "", "watermark image")
		genKey      = flag.String("genkey", "", "write a new dilithium3 key to this path and exit")
		logLevel    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logging.Setup(*logLevel, "text")

	if *genKey != "" {
		if err := generateKey(*genKey); err != nil {
			fatal("generate key", err)
		}
		fmt.Println("wrote", *genKey)
		return
	}

	if *out == "" {
		*out = *in
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		fatal("create output directory", err)
	}

	signer, err := signature.Load(*keyType, *keyPath, *keyPassword)
	if err != nil {
		fatal("load signing key", err)
	}
	var img *workbook.Image
	if *watermark != "" {
		if img, err = workbook.LoadImage(*watermark); err != nil {
			fatal("load watermark", err)
		}
	}

	svc := core.NewService(core.Config{SheetName: *sheet, Encoding: *encoding}, core.Deps{
		Signer:    signer,
		Watermark: img,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, err := svc.ConvertDir(ctx, *in, core.ConvertRequest{Password: *password})
	if err != nil && len(items) == 0 {
		fatal("convert", err)
	}

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			msg := core.MapError(item.Err)
			fmt.Fprintf(os.Stderr, "FAIL %s: %s (%s)\n", item.Path, msg.Message, msg.Code)
			continue
		}
		if err := writeResult(*out, item.Result); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", item.Path, err)
			continue
		}
		fmt.Printf("ok   %s %s\n", item.Path, item.Result.Fingerprint)
	}

	if err != nil {
		fatal("convert", err)
	}
	fmt.Printf("%d converted, %d failed\n", len(items)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// writeResult stores the workbook as <name>.xlsx and its envelope, if any,
// as <name>.sig.json.
func writeResult(dir string, res *core.ConvertResult) error {
	base := strings.TrimSuffix(res.FileName, filepath.Ext(res.FileName))
	if err := os.WriteFile(filepath.Join(dir, base+".xlsx"), res.Document, 0o644); err != nil {
		return err
	}
	if res.Signature == nil {
		return nil
	}
	env, err := signature.Encode(res.Signature)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, base+".sig.json"), env, 0o644)
}

func generateKey(path string) error {
	s, err := signature.GenerateDilithium3()
	if err != nil {
		return err
	}
	return os.WriteFile(path, s.MarshalPEM(), 0o600)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
