package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetseal/internal/core"
	"github.com/JonMunkholm/sheetseal/internal/csvin"
	"github.com/JonMunkholm/sheetseal/internal/web/templates"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	recentLimit     = 20
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// dashboardData collects the landing page state. Ledger errors leave the
// history empty rather than failing the page.
func (s *Server) dashboardData(r *http.Request) templates.DashboardData {
	ctx := r.Context()
	d := templates.DashboardData{
		Limiter:   s.service.Limiter().Status(),
		Encodings: csvin.Encodings(),
		SheetName: s.service.Config().SheetName,
		Signing:   s.service.Signing(),
	}

	if list, err := s.service.List(ctx, recentLimit, 0); err == nil {
		d.Conversions = list
	} else if !errors.Is(err, core.ErrLedgerDisabled) {
		slog.Warn("dashboard: list conversions", "error", err)
	}
	if stats, err := s.service.Stats(ctx); err == nil {
		d.Stats = stats
	}
	return d
}

// handleDashboard renders the main page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.Dashboard(s.dashboardData(r)))
}

// handleConvertForm handles the browser form and re-renders the dashboard
// with the result.
func (s *Server) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.convertUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	d := s.dashboardData(r)
	d.Result = res
	s.render(w, r, http.StatusOK, templates.Dashboard(d))
}

// handleConvert converts an uploaded CSV and returns the result as JSON.
// A fingerprint mismatch is 409 with both fingerprints.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	res, err := s.convertUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) (*core.ConvertResult, error) {
	if err := s.parseUpload(w, r, 1); err != nil {
		return nil, err
	}
	file, hdr, err := formFile(r, "file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ctx := withRequestMetadata(r.Context(), r)
	return s.service.Convert(ctx, core.ConvertRequest{
		FileName:  hdr.Filename,
		Data:      file,
		SheetName: r.FormValue("sheet"),
		Encoding:  r.FormValue("encoding"),
		Password:  r.FormValue("password"),
	})
}

// handleInspect fingerprints an uploaded CSV without converting it.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r, 1); err != nil {
		s.respondError(w, r, err)
		return
	}
	file, hdr, err := formFile(r, "file")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	insp, err := s.service.Inspect(r.Context(), file, r.FormValue("encoding"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	insp.FileName = hdr.Filename
	writeJSON(w, insp)
}

// handleAudit compares an uploaded workbook with an uploaded CSV. The report
// is returned either way; anything short of a full match is 409.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r, 2); err != nil {
		s.respondError(w, r, err)
		return
	}
	csvFile, _, err := formFile(r, "csv")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer csvFile.Close()
	xlsxFile, _, err := formFile(r, "xlsx")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer xlsxFile.Close()

	report, err := s.service.Audit(r.Context(), csvFile, xlsxFile, r.FormValue("password"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if !report.Match {
		status = http.StatusConflict
	}
	writeJSONStatus(w, status, report)
}

// handleListConversions returns recent ledger rows, or the rows of one
// source fingerprint when ?fingerprint= is given.
func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultListLimit)
	offset := parseIntParam(r, "offset", 0)

	var (
		list []core.ConversionRecord
		err  error
	)
	if fp := r.URL.Query().Get("fingerprint"); fp != "" {
		list, err = s.service.History(r.Context(), fp, limit)
	} else {
		list, err = s.service.List(r.Context(), limit, offset)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []core.ConversionRecord{}
	}
	writeJSON(w, list)
}

// handleConversionStats returns ledger counts per status.
func (s *Server) handleConversionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// handleConversionPage renders one ledger row.
func (s *Server) handleConversionPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, templates.ConversionPage(*rec))
}

// handleDownloadDocument streams the stored workbook.
func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data, rec, err := s.service.Document(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", attachment(xlsxName(rec.FileName)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Fingerprint", rec.SourceFingerprint)
	if _, err := w.Write(data); err != nil {
		slog.Warn("write document", "conversion_id", id, "error", err)
	}
}

// handleGetSignature returns the stored signature envelope.
func (s *Server) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	env, err := s.service.SignatureEnvelope(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, env)
}

// handleLimiterStatus reports conversion slot usage.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Limiter().Status())
}
