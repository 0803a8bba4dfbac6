package core

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
	"github.com/JonMunkholm/sheetseal/internal/csvin"
)

// MaxCellLength is the longest string a workbook cell holds.
const MaxCellLength = 32767

// Inspect parses a CSV and fingerprints it without building a document.
//
// Convertible is false when the table holds content a saved workbook cannot
// reproduce: over-long cells, characters XML disallows, _xHHHH_ escape text
// and a final row with no cells all change the fingerprint on read-back.
func (s *Service) Inspect(ctx context.Context, r io.Reader, encoding string) (*Inspection, error) {
	if r == nil {
		return nil, ErrNoData
	}
	in, err := csvin.Read(r, csvin.Options{
		Encoding: firstNonEmpty(encoding, s.cfg.Encoding),
		MaxBytes: s.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canonical := checksum.Canonicalize(in.Table)
	sum, err := checksum.Sum(canonical)
	if err != nil {
		return nil, err
	}
	fp, err := checksum.Digest(canonical)
	if err != nil {
		return nil, err
	}

	stats := checksum.Describe(in.Table)
	warnings := convertWarnings(in.Table)

	return &Inspection{
		Encoding:       in.Encoding,
		BytesRead:      in.Bytes,
		Rows:           stats.Rows,
		MaxColumns:     stats.MaxColumns,
		Cells:          stats.Cells,
		QuotedCells:    stats.Quoted,
		EmptyRows:      stats.EmptyRows,
		CanonicalBytes: len(canonical),
		Fingerprint:    fp,
		Legacy:         checksum.FormatLegacy(sum),
		Convertible:    len(warnings) == 0,
		Warnings:       warnings,
	}, nil
}

// escapeLike matches text a workbook reader decodes as an escaped character.
var escapeLike = regexp.MustCompile(`_x[0-9A-Fa-f]{4}_`)

// convertWarnings lists the first problem of each kind, with its position.
func convertWarnings(t checksum.Table) []string {
	var (
		warnings           []string
		long, illegal, esc bool
	)
	for i, row := range t {
		for j, cell := range row {
			switch {
			case !long && utf8.RuneCountInString(cell) > MaxCellLength:
				warnings = append(warnings, fmt.Sprintf("row %d column %d exceeds %d characters", i+1, j+1, MaxCellLength))
				long = true
			case !illegal && strings.IndexFunc(cell, notXMLChar) >= 0:
				warnings = append(warnings, fmt.Sprintf("row %d column %d holds a character XML cannot store", i+1, j+1))
				illegal = true
			case !esc && escapeLike.MatchString(cell):
				warnings = append(warnings, fmt.Sprintf("row %d column %d holds _xHHHH_ text", i+1, j+1))
				esc = true
			}
		}
	}
	if n := len(t); n > 0 && len(t[n-1]) == 0 {
		warnings = append(warnings, fmt.Sprintf("row %d is an empty trailing row", n))
	}
	return warnings
}

// notXMLChar reports runes outside the XML 1.0 Char production.
func notXMLChar(r rune) bool {
	switch {
	case r == 0x9, r == 0xA, r == 0xD:
		return false
	case r >= 0x20 && r <= 0xD7FF:
		return false
	case r >= 0xE000 && r <= 0xFFFD:
		return false
	case r >= 0x10000 && r <= 0x10FFFF:
		return false
	}
	return true
}
