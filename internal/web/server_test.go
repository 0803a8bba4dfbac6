package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetseal/internal/config"
	"github.com/JonMunkholm/sheetseal/internal/core"
	"github.com/JonMunkholm/sheetseal/internal/storage/localfs"
)

// fakeStore is an in-memory core.ConversionStore.
type fakeStore struct {
	mu   sync.Mutex
	rows []core.ConversionRecord
}

func (f *fakeStore) InsertConversion(_ context.Context, rec *core.ConversionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.CreatedAt = time.Now()
	f.rows = append([]core.ConversionRecord{*rec}, f.rows...)
	return nil
}

func (f *fakeStore) GetConversion(_ context.Context, id uuid.UUID) (*core.ConversionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, core.ErrConversionNotFound
}

func (f *fakeStore) ListConversions(_ context.Context, limit, offset int) ([]core.ConversionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset >= len(f.rows) {
		return nil, nil
	}
	rows := f.rows[offset:]
	return append([]core.ConversionRecord(nil), rows[:min(limit, len(rows))]...), nil
}

func (f *fakeStore) ListByFingerprint(_ context.Context, fp string, limit int) ([]core.ConversionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ConversionRecord
	for _, r := range f.rows {
		if r.SourceFingerprint == fp && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CountByStatus(context.Context) (map[core.ConversionStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[core.ConversionStatus]int64{}
	for _, r := range f.rows {
		counts[r.Status]++
	}
	return counts, nil
}

func (f *fakeStore) DeleteConversionsBefore(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Convert:  config.ConvertConfig{MaxFileSize: 1 << 20},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := core.NewService(core.Config{MaxFileSize: cfg.Convert.MaxFileSize}, core.Deps{
		Store: &fakeStore{},
		CAS:   cas,
	})
	return NewServer(svc, cfg)
}

// multipartBody builds a form with the given files and fields.
func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func convert(t *testing.T, s *Server, csv string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, map[string][]byte{"file": []byte(csv)}, nil)
	return do(t, s, http.MethodPost, "/api/convert", body, ct)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestConvertAndHistory(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := convert(t, s, "a,b\n1,2\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body %s", rec.Code, rec.Body)
	}
	res := decode[core.ConvertResult](t, rec)
	if res.Fingerprint == "" || res.DocumentCID == "" {
		t.Fatalf("result = %+v, want fingerprint and CID", res)
	}

	rec = do(t, s, http.MethodGet, "/api/conversions/"+res.ID.String(), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got := decode[core.ConversionRecord](t, rec)
	if got.Status != core.StatusVerified || got.SourceFingerprint != string(res.Fingerprint) {
		t.Errorf("record = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/conversions/"+res.ID.String()+"/document", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("document status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "file.xlsx") {
		t.Errorf("Content-Disposition = %q, want file.xlsx", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("document is not a zip container")
	}

	// No signer configured, so nothing was stored.
	rec = do(t, s, http.MethodGet, "/api/conversions/"+res.ID.String()+"/signature", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("signature status = %d, want 404", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/conversions", nil, "")
	if list := decode[[]core.ConversionRecord](t, rec); len(list) != 1 {
		t.Errorf("list = %d rows, want 1", len(list))
	}

	rec = do(t, s, http.MethodGet, "/api/conversions?fingerprint="+string(res.Fingerprint), nil, "")
	if list := decode[[]core.ConversionRecord](t, rec); len(list) != 1 {
		t.Errorf("history = %d rows, want 1", len(list))
	}

	rec = do(t, s, http.MethodGet, "/api/conversions/stats", nil, "")
	if stats := decode[map[string]int64](t, rec); stats["verified"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestConvert_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.MaxFileSize = 64
	s := newTestServer(t, cfg)

	t.Run("mismatch", func(t *testing.T) {
		rec := convert(t, s, "a,b\x01c\n")
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		resp := decode[ErrorResponse](t, rec)
		if resp.Code != "INT001" || resp.Expected == "" || resp.Actual == "" || resp.Expected == resp.Actual {
			t.Errorf("response = %+v, want both fingerprints", resp)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		body, ct := multipartBody(t, nil, map[string]string{"sheet": "x"})
		rec := do(t, s, http.MethodPost, "/api/convert", body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		rec := convert(t, s, strings.Repeat("x,", 100)+"\n")
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("invalid csv", func(t *testing.T) {
		rec := convert(t, s, "a\"b\n")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
		if resp := decode[ErrorResponse](t, rec); resp.Code != "FILE002" {
			t.Errorf("code = %q, want FILE002", resp.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/conversions/not-a-uuid", nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/conversions/"+uuid.NewString(), nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestInspect(t *testing.T) {
	s := newTestServer(t, testConfig())
	body, ct := multipartBody(t, map[string][]byte{"file": []byte("_x0041_,\n")}, nil)

	rec := do(t, s, http.MethodPost, "/api/inspect", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	insp := decode[core.Inspection](t, rec)
	if insp.Convertible || len(insp.Warnings) != 1 || insp.FileName != "file.bin" {
		t.Errorf("inspection = %+v", insp)
	}
}

func TestAudit(t *testing.T) {
	s := newTestServer(t, testConfig())
	res := decode[core.ConvertResult](t, convert(t, s, "a,b\n"))

	rec := do(t, s, http.MethodGet, "/api/conversions/"+res.ID.String()+"/document", nil, "")
	doc := rec.Body.Bytes()

	body, ct := multipartBody(t, map[string][]byte{"csv": []byte("a,b\n"), "xlsx": doc}, nil)
	rec = do(t, s, http.MethodPost, "/api/audit", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("matching audit status = %d, body %s", rec.Code, rec.Body)
	}

	body, ct = multipartBody(t, map[string][]byte{"csv": []byte("a,c\n"), "xlsx": doc}, nil)
	rec = do(t, s, http.MethodPost, "/api/audit", body, ct)
	if rec.Code != http.StatusConflict {
		t.Errorf("differing audit status = %d, want 409", rec.Code)
	}
	if report := decode[core.AuditReport](t, rec); report.ContentMatch {
		t.Errorf("report = %+v, want content mismatch", report)
	}
}

func TestPages(t *testing.T) {
	s := newTestServer(t, testConfig())

	body, ct := multipartBody(t, map[string][]byte{"file": []byte("x,y\n")}, map[string]string{"sheet": "people"})
	rec := do(t, s, http.MethodPost, "/convert", body, ct)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Verified") {
		t.Fatalf("form convert = %d, body %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Recent conversions") {
		t.Errorf("dashboard = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "file.bin") {
		t.Error("dashboard does not list the conversion")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "<b>bold<b>.csv")
	fw.Write([]byte("a\n"))
	mw.Close()
	rec = do(t, s, http.MethodPost, "/api/convert", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/", nil, "")
	if strings.Contains(rec.Body.String(), "<b>bold") {
		t.Error("dashboard did not escape the file name")
	}

	body, ct = multipartBody(t, nil, nil)
	rec = do(t, s, http.MethodPost, "/convert", body, ct)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "FILE004") {
		t.Errorf("form error = %d, body %s", rec.Code, rec.Body)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	rec := do(t, s, http.MethodGet, "/api/limiter", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/limiter", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with key status = %d, want 200", rec.Code)
	}
	if st := decode[core.LimiterStatus](t, rec); st.MaxConcurrent != core.DefaultMaxConcurrentConversions {
		t.Errorf("limiter = %+v", st)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := &rateLimiter{
		visitors: map[string]*visitor{},
		rate:     2,
		window:   time.Minute,
		now:      func() time.Time { return now },
		done:     make(chan struct{}),
	}

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.allow("b") {
		t.Error("other clients are independent")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("window reset should allow again")
	}

	now = now.Add(5 * time.Minute)
	rl.sweep()
	if len(rl.visitors) != 0 {
		t.Errorf("sweep left %d visitors", len(rl.visitors))
	}
	rl.stop()
	rl.stop()
}

func TestXLSXName(t *testing.T) {
	tests := map[string]string{
		"report.csv":          "report.xlsx",
		"../../etc/passwd":    "passwd.xlsx",
		`C:\Users\me\a b.csv`: "a b.xlsx",
		"":                    "document.xlsx",
		"noext":               "noext.xlsx",
	}
	for in, want := range tests {
		if got := xlsxName(in); got != want {
			t.Errorf("xlsxName(%q) = %q, want %q", in, got, want)
		}
	}
}
