package web

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetseal/internal/core"
	"github.com/JonMunkholm/sheetseal/internal/csvin"
)

// maxFormMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const maxFormMemory = 32 << 20

// parseUpload caps the body at files uploads of the configured size and
// parses the multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, files int) error {
	if limit := s.cfg.Convert.MaxFileSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(files)*limit+uploadSlack)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return fmt.Errorf("%w: upload exceeds %d bytes", csvin.ErrFileTooLarge, mbe.Limit)
		}
		return fmt.Errorf("%w: %v", core.ErrNoData, err)
	}
	return nil
}

// formFile opens a multipart file field. A missing field maps to core.ErrNoData.
func formFile(r *http.Request, name string) (multipart.File, *multipart.FileHeader, error) {
	f, hdr, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, fmt.Errorf("%w: field %q", core.ErrNoData, name)
	}
	if err != nil {
		return nil, nil, err
	}
	return f, hdr, nil
}

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseID reads the {id} URL parameter. A malformed id is reported as not found.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", core.ErrConversionNotFound, raw)
	}
	return id, nil
}

// xlsxName derives the download name of a converted file.
func xlsxName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "document"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}

// attachment builds a Content-Disposition header value.
func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
