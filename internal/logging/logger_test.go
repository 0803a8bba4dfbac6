package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestForConversion(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ForConversion(ctx, "conv-1", "in.csv").Info("converted")

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "conversion_id=conv-1", "file=in.csv", "msg=converted"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestNew_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("convert", "password", "hunter2", "file", "a.csv", "key_password", "")

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("log output %q leaks the password", out)
	}
	if !strings.Contains(out, `"password":"[REDACTED]"`) {
		t.Errorf("log output %q missing redacted password", out)
	}
	if !strings.Contains(out, `"key_password":""`) {
		t.Errorf("empty secrets should stay empty: %q", out)
	}
	if !strings.Contains(out, `"file":"a.csv"`) {
		t.Errorf("log output %q missing file", out)
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text")
	log.Info("hidden")
	log.Warn("shown")

	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("log output = %q, want only the warning", out)
	}
}
