package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted as JSON for API clients and as a page for browsers
//
// The HTTP status is derived from the support code core.MapError assigns, so
// the mapping from technical error to status lives in one place.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/sheetseal/internal/core"
	"github.com/JonMunkholm/sheetseal/internal/integrity"
	"github.com/JonMunkholm/sheetseal/internal/web/templates"
)

var msgRateLimited = core.MapError(errors.New("rate limit exceeded"))

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
// A fingerprint mismatch also carries both fingerprints.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Action   string `json:"action,omitempty"`
	Code     string `json:"code"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// codeStatus maps support codes to HTTP statuses. Unlisted codes are 500.
var codeStatus = map[string]int{
	"INT001":  http.StatusConflict,
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE002": http.StatusUnprocessableEntity,
	"FILE003": http.StatusUnprocessableEntity,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusBadRequest,
	"CNV001":  http.StatusBadRequest,
	"CNV002":  http.StatusUnauthorized,
	"CNV003":  http.StatusUnauthorized,
	"CNV004":  http.StatusUnprocessableEntity,
	"STO001":  http.StatusNotFound,
	"STO002":  http.StatusNotFound,
	"STO004":  http.StatusServiceUnavailable,
	"RATE001": http.StatusServiceUnavailable,
	"REQ001":  499,
	"REQ002":  http.StatusGatewayTimeout,
	"DB004":   http.StatusServiceUnavailable,
	"DB005":   http.StatusServiceUnavailable,
}

// statusFor returns the HTTP status for a mapped error.
func statusFor(msg core.UserMessage) int {
	if status, ok := codeStatus[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing version of it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(userMsg)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if errors.Is(err, core.ErrTooManyConversions) {
		w.Header().Set("Retry-After", "5")
	}

	if !wantsJSON(r) {
		respondErrorHTML(w, r, userMsg, status)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if m, ok := integrity.AsMismatch(err); ok {
		resp.Expected = string(m.Expected)
		resp.Actual = string(m.Actual)
	}
	writeJSONStatus(w, status, resp)
}

// respondErrorJSON writes a JSON error response without request context.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSONStatus(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML renders the error page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorPage(msg, statusCode).Render(r.Context(), w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	// API routes default to JSON
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
