// Package workbook builds and reads single-sheet XLSX documents with excelize.
//
// Cells are written positionally as plain strings. No numeric or date typing
// is applied, so reading a sheet back returns exactly what the document model
// stored, empty trailing cells included. Content the model cannot hold
// (strings over 32767 characters, characters XML does not allow, text that
// looks like an _xHHHH_ escape, rows with no cells at the end of the table)
// reads back differently and is left for the integrity check to reject.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
	"github.com/JonMunkholm/sheetseal/internal/integrity"
)

// DefaultSheet is the sheet name used when none is given.
const DefaultSheet = "data"

// MaxSheetNameLength is the longest sheet name a workbook accepts.
const MaxSheetNameLength = 31

var (
	// ErrInvalidSheetName is returned for names excelize would reject.
	ErrInvalidSheetName = errors.New("invalid sheet name")

	// ErrNoSheets is returned when an opened workbook has no worksheets.
	ErrNoSheets = errors.New("workbook has no sheets")

	// ErrWrongPassword is returned when an encrypted workbook cannot be opened.
	ErrWrongPassword = errors.New("workbook password incorrect")

	// ErrPasswordRequired is returned when an encrypted workbook is opened
	// without a password.
	ErrPasswordRequired = errors.New("workbook is encrypted, password required")
)

// New returns a workbook holding t on a single sheet named sheet.
// The caller owns the returned file and must Close it.
func New(sheet string, t checksum.Table) (*excelize.File, error) {
	sheet, err := normalizeSheet(sheet)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := fill(f, sheet, t); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, sheet string, t checksum.Table) error {
	if first := f.GetSheetName(0); first != sheet {
		if err := f.SetSheetName(first, sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}

	for r, row := range t {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("row %d column %d: %w", r+1, c+1, err)
			}
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}
	return nil
}

// Build adapts New to integrity.BuildFunc.
func Build(sheet string) integrity.BuildFunc[*excelize.File] {
	return func(t checksum.Table) (*excelize.File, error) {
		return New(sheet, t)
	}
}

// Rows reads every row of sheet back into a table. An empty sheet name reads
// the first sheet in the workbook.
//
// GetRows drops trailing cells and rows whose value is empty even when the
// cells exist, so those are restored from the cell types: a cell that was
// written, even as "", has a type, and a missing one is CellTypeUnset.
func Rows(f *excelize.File, sheet string) (checksum.Table, error) {
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ErrNoSheets
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	table := make(checksum.Table, 0, len(rows))
	for i := 0; ; i++ {
		var row []string
		if i < len(rows) {
			row = rows[i]
		}
		row, err = extendRow(f, sheet, i+1, row)
		if err != nil {
			return nil, err
		}
		if i >= len(rows) && len(row) == 0 {
			break
		}
		if row == nil {
			row = []string{}
		}
		table = append(table, row)
	}
	return table, nil
}

// extendRow appends "" for every written cell past the end of row.
func extendRow(f *excelize.File, sheet string, rowNum int, row []string) ([]string, error) {
	for col := len(row) + 1; col <= excelize.MaxColumns; col++ {
		cell, err := excelize.CoordinatesToCellName(col, rowNum)
		if err != nil {
			return nil, err
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cell, err)
		}
		if typ == excelize.CellTypeUnset {
			break
		}
		row = append(row, "")
	}
	return row, nil
}

// Read adapts Rows to integrity.ReadFunc.
func Read(sheet string) integrity.ReadFunc[*excelize.File] {
	return func(f *excelize.File) (checksum.Table, error) {
		return Rows(f, sheet)
	}
}

// Encode serializes f to XLSX bytes. A non-empty password encrypts the
// package with ECMA-376 standard encryption (AES-128).
func Encode(f *excelize.File, password string) ([]byte, error) {
	var buf bytes.Buffer
	opts := excelize.Options{Password: password}
	if err := f.Write(&buf, opts); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// oleHeader starts every encrypted (compound file) workbook.
var oleHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Encrypted reports whether data is an encrypted workbook container.
func Encrypted(data []byte) bool {
	return bytes.HasPrefix(data, oleHeader)
}

// Open reads an XLSX document. password is required for encrypted documents.
func Open(r io.Reader, password string) (*excelize.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if password == "" && Encrypted(data) {
		return nil, ErrPasswordRequired
	}

	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{Password: password})
	if err != nil {
		if f != nil {
			f.Close()
		}
		// excelize reports a failed decrypt as a format error.
		if errors.Is(err, excelize.ErrWorkbookPassword) ||
			(Encrypted(data) && errors.Is(err, excelize.ErrWorkbookFileFormat)) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return f, nil
}

func normalizeSheet(name string) (string, error) {
	if name == "" {
		return DefaultSheet, nil
	}
	if len([]rune(name)) > MaxSheetNameLength {
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidSheetName, name, MaxSheetNameLength)
	}
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidSheetName, name, r)
		}
	}
	if name[0] == '\'' || name[len(name)-1] == '\'' {
		return "", fmt.Errorf("%w: %q starts or ends with an apostrophe", ErrInvalidSheetName, name)
	}
	return name, nil
}

// ValidateSheetName reports whether name is usable as a sheet name.
func ValidateSheetName(name string) error {
	_, err := normalizeSheet(name)
	return err
}
