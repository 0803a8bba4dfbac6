package core

// convert.go is the conversion pipeline.
//
// A request flows through: limiter slot, CSV parse, integrity-gated workbook
// build, property stamp, optional watermark, serialization (encrypted when a
// password is given), a second fingerprint check on the reopened bytes,
// optional signature, CAS storage, and finally a ledger row. Every attempt gets a ledger row, including failures, so the history
// view shows rejected files alongside verified ones.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
	"github.com/JonMunkholm/sheetseal/internal/csvin"
	"github.com/JonMunkholm/sheetseal/internal/integrity"
	"github.com/JonMunkholm/sheetseal/internal/logging"
	"github.com/JonMunkholm/sheetseal/internal/signature"
	"github.com/JonMunkholm/sheetseal/internal/workbook"
)

// ErrNoData is returned when a request carries no reader.
var ErrNoData = errors.New("no file data")

// Convert turns one CSV into a verified workbook.
//
// A fingerprint mismatch returns the *integrity.Error untouched so callers
// can report both fingerprints.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	if err := s.deps.Limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.deps.Limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	id := uuid.New()
	log := logging.ForConversion(ctx, id.String(), req.FileName)
	client := ClientFrom(ctx)

	rec := &ConversionRecord{
		ID:        id,
		FileName:  req.FileName,
		SheetName: firstNonEmpty(req.SheetName, s.cfg.SheetName),
		Encoding:  firstNonEmpty(req.Encoding, s.cfg.Encoding),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}

	result, err := s.convert(ctx, req, rec)
	rec.Duration = time.Since(start)

	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		if m, ok := integrity.AsMismatch(err); ok {
			rec.Status = StatusMismatch
			rec.SourceFingerprint = string(m.Expected)
			rec.ResultFingerprint = string(m.Actual)
		}
		log.Warn("conversion rejected", "status", rec.Status, "error", err)
		if recErr := s.record(ctx, rec); recErr != nil {
			log.Error("failed to record conversion", "error", recErr)
		}
		return nil, err
	}

	rec.Status = StatusVerified
	result.Duration = rec.Duration
	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}

	log.Info("conversion verified",
		"fingerprint", result.Fingerprint,
		"rows", result.Rows,
		"cells", result.Cells,
		"encrypted", result.Encrypted,
		"document_cid", result.DocumentCID,
		"duration_ms", rec.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *Service) convert(ctx context.Context, req ConvertRequest, rec *ConversionRecord) (*ConvertResult, error) {
	if req.Data == nil {
		return nil, ErrNoData
	}

	in, err := csvin.Read(req.Data, csvin.Options{
		Encoding: rec.Encoding,
		MaxBytes: s.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	stats := checksum.Describe(in.Table)
	rec.Encoding = in.Encoding
	rec.BytesRead = in.Bytes
	rec.Rows = stats.Rows
	rec.Cells = stats.Cells

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The built file is closed here whether or not verification hands it back.
	var built *excelize.File
	defer func() {
		if built != nil {
			built.Close()
		}
	}()
	build := func(t checksum.Table) (*excelize.File, error) {
		f, err := workbook.Build(rec.SheetName)(t)
		built = f
		return f, err
	}

	verified, err := integrity.Verify(in.Table, build, workbook.Read(rec.SheetName))
	if err != nil {
		return nil, err
	}
	fp := verified.Fingerprint
	rec.SourceFingerprint = string(fp)
	rec.ResultFingerprint = string(fp)

	f := verified.Document
	if err := workbook.Stamp(f, workbook.Properties{
		Title:      rec.FileName,
		Identifier: string(fp),
		Created:    time.Now(),
	}); err != nil {
		return nil, err
	}

	if s.deps.Watermark != nil {
		if err := workbook.Watermark(f, rec.SheetName, s.cfg.WatermarkCell, s.deps.Watermark); err != nil {
			return nil, err
		}
		rec.Watermarked = true
	}

	data, err := workbook.Encode(f, req.Password)
	if err != nil {
		return nil, err
	}
	// Serialization can still rewrite cells the in-memory read accepted.
	if err := checkEncoded(data, req.Password, rec.SheetName, fp); err != nil {
		return nil, err
	}
	rec.Encrypted = req.Password != ""

	result := &ConvertResult{
		ID:          rec.ID,
		FileName:    rec.FileName,
		SheetName:   rec.SheetName,
		Fingerprint: fp,
		Rows:        rec.Rows,
		Cells:       rec.Cells,
		BytesRead:   rec.BytesRead,
		Encrypted:   rec.Encrypted,
		Watermarked: rec.Watermarked,
		Document:    data,
	}

	if s.deps.Signer != nil {
		env, err := signature.Sign(s.deps.Signer, data, signature.Options{
			HashAlg:     s.cfg.HashAlg,
			Fingerprint: fp,
		})
		if err != nil {
			return nil, fmt.Errorf("sign document: %w", err)
		}
		result.Signature = env
	}

	if err := s.store(ctx, result); err != nil {
		return nil, err
	}
	rec.DocumentCID = result.DocumentCID
	rec.SignatureCID = result.SignatureCID

	return result, nil
}

// checkEncoded reopens the serialized document and fingerprints its cells
// against want.
func checkEncoded(data []byte, password, sheet string, want checksum.Fingerprint) error {
	f, err := workbook.Open(bytes.NewReader(data), password)
	if err != nil {
		return fmt.Errorf("reopen workbook: %w", err)
	}
	defer f.Close()

	back, err := workbook.Rows(f, sheet)
	if err != nil {
		return fmt.Errorf("reopen workbook: %w", err)
	}
	got, err := checksum.Checksum(back)
	if err != nil {
		return err
	}
	return integrity.Compare(want, got)
}

// store puts the document and its envelope in the CAS when one is configured.
func (s *Service) store(ctx context.Context, result *ConvertResult) error {
	if s.deps.CAS == nil {
		return nil
	}

	docID, err := s.deps.CAS.Put(ctx, result.Document)
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	result.DocumentCID = docID.String()

	if result.Signature == nil {
		return nil
	}
	env, err := signature.Encode(result.Signature)
	if err != nil {
		return fmt.Errorf("encode signature: %w", err)
	}
	sigID, err := s.deps.CAS.Put(ctx, env)
	if err != nil {
		return fmt.Errorf("store signature: %w", err)
	}
	result.SignatureCID = sigID.String()
	return nil
}

// record writes rec to the ledger. It outlives the conversion deadline so a
// timed-out conversion is still recorded.
func (s *Service) record(ctx context.Context, rec *ConversionRecord) error {
	if s.deps.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.deps.Store.InsertConversion(ctx, rec); err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
