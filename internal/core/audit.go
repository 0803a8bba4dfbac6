package core

import (
	"bytes"
	"context"
	"io"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
	"github.com/JonMunkholm/sheetseal/internal/csvin"
	"github.com/JonMunkholm/sheetseal/internal/integrity"
	"github.com/JonMunkholm/sheetseal/internal/logging"
	"github.com/JonMunkholm/sheetseal/internal/workbook"
)

// Audit checks an existing workbook against the CSV it claims to hold.
//
// The workbook's first sheet is read back and fingerprinted, and the
// identifier stamped into its document properties is compared too. A
// differing sheet leaves a mismatch error in the report; the call itself
// only fails when either input cannot be read.
func (s *Service) Audit(ctx context.Context, csv, xlsx io.Reader, password string) (*AuditReport, error) {
	if csv == nil || xlsx == nil {
		return nil, ErrNoData
	}

	in, err := csvin.Read(csv, csvin.Options{
		Encoding: s.cfg.Encoding,
		MaxBytes: s.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	source, err := checksum.Checksum(in.Table)
	if err != nil {
		return nil, err
	}

	var r io.Reader = xlsx
	if s.cfg.MaxFileSize > 0 {
		r = io.LimitReader(xlsx, s.cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return nil, csvin.ErrFileTooLarge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := workbook.Open(bytes.NewReader(data), password)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	back, err := workbook.Rows(f, sheet)
	if err != nil {
		return nil, err
	}
	actual, err := checksum.Checksum(back)
	if err != nil {
		return nil, err
	}
	ident, err := workbook.Identifier(f)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		SourceFingerprint:   source,
		WorkbookFingerprint: actual,
		EmbeddedIdentifier:  ident,
		Sheet:               sheet,
		Rows:                len(back),
		ContentMatch:        source == actual,
		IdentifierMatch:     ident == string(source),
	}
	report.Match = report.ContentMatch && report.IdentifierMatch

	if err := integrity.Compare(source, actual); err != nil {
		report.Err, _ = integrity.AsMismatch(err)
	}

	logging.ForAudit(ctx, string(source)).Info("workbook audited",
		"sheet", sheet,
		"content_match", report.ContentMatch,
		"identifier_match", report.IdentifierMatch,
	)
	return report, nil
}
