package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/sheetseal/internal/config"
)

func echoRemote() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.RemoteAddr))
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"no proxies strips port", nil, "198.51.100.4:5555", nil, "198.51.100.4"},
		{"untrusted header ignored", []string{"10.0.0.0/8"}, "198.51.100.4:5555",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "198.51.100.4"},
		{"trusted x-real-ip", []string{"10.0.0.0/8"}, "10.1.2.3:80",
			map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"trusted xff first entry", []string{"10.0.0.1"}, "10.0.0.1:80",
			map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"trusted invalid header kept", []string{"10.0.0.0/8"}, "10.1.2.3:80",
			map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"invalid proxy entry skipped", []string{"bogus", "10.0.0.0/8"}, "10.9.9.9:1",
			map[string]string{"X-Real-IP": "203.0.113.1"}, "203.0.113.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			TrustedRealIP(tt.trusted)(echoRemote()).ServeHTTP(rec, req)

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		cfg     config.SecurityConfig
		headers map[string]string
		want    int
	}{
		{"disabled", config.SecurityConfig{}, nil, http.StatusNoContent},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, nil, http.StatusUnauthorized},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			map[string]string{"X-API-Key": "k2"}, http.StatusForbidden},
		{"header key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}},
			map[string]string{"X-API-Key": "k2"}, http.StatusNoContent},
		{"bearer key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			map[string]string{"Authorization": "Bearer k1"}, http.StatusNoContent},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true},
			map[string]string{"X-API-Key": "k1"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/limiter", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			cfg := tt.cfg
			APIKeyAuth(&cfg)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatusAndBytes(t *testing.T) {
	var ww *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if ww.status != http.StatusTeapot || ww.bytes != 15 {
		t.Errorf("recorded status, bytes = %d, %d, want 418, 15", ww.status, ww.bytes)
	}
}
