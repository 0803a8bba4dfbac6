// Package checksum defines the canonical text form of a table of CSV cells
// and the SHA-512 fingerprint taken over it.
//
// Two tables are considered identical when their fingerprints are equal. The
// canonical form follows common CSV writer quoting: a cell is wrapped in
// double quotes only when it contains a carriage return, line feed, double
// quote or comma, and embedded double quotes are doubled. Every row, the last
// one included, ends with a single line feed.
//
// All functions are pure and safe for concurrent use.
package checksum

import (
	"crypto"
	_ "crypto/sha512" // registers crypto.SHA512
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Algorithm is the hash every fingerprint is computed with.
const Algorithm = crypto.SHA512

// ErrHashUnavailable is returned when the SHA-512 implementation is not
// linked into the binary. It is a configuration fault, not a data fault.
var ErrHashUnavailable = errors.New("checksum: sha-512 hash function unavailable")

// Table is an ordered sequence of rows, each an ordered sequence of cells.
type Table [][]string

// Fingerprint is the lowercase hex SHA-512 digest of a canonical form.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// specialChars trigger quoting when present anywhere in a cell.
const specialChars = "\r\n\","

// Canonicalize renders t as its canonical string.
//
// An empty table yields "", a single row with no cells yields "\n", and an
// empty cell contributes nothing between its separators.
func Canonicalize(t Table) string {
	var b strings.Builder
	b.Grow(canonicalSize(t))
	for _, row := range t {
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCell(&b, cell)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// writeCell escapes quotes and wraps the cell when the original text holds
// any special character.
func writeCell(b *strings.Builder, cell string) {
	if !strings.ContainsAny(cell, specialChars) {
		b.WriteString(cell)
		return
	}
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
	b.WriteByte('"')
}

// canonicalSize is a lower bound used to pre-size the builder.
func canonicalSize(t Table) int {
	n := 0
	for _, row := range t {
		n += len(row) + 1
		for _, cell := range row {
			n += len(cell)
		}
	}
	return n
}

// Sum returns the raw SHA-512 digest of the canonical string's UTF-8 bytes.
// A new hash instance is created on every call.
func Sum(canonical string) ([]byte, error) {
	if !Algorithm.Available() {
		return nil, ErrHashUnavailable
	}
	h := Algorithm.New()
	// Go strings are byte sequences; the CSV reader guarantees they hold UTF-8.
	h.Write([]byte(canonical))
	return h.Sum(nil), nil
}

// Digest fingerprints a canonical string as 128 lowercase hex characters.
func Digest(canonical string) (Fingerprint, error) {
	sum, err := Sum(canonical)
	if err != nil {
		return "", err
	}
	return Fingerprint(hex.EncodeToString(sum)), nil
}

// Checksum fingerprints a table: Digest(Canonicalize(t)).
func Checksum(t Table) (Fingerprint, error) {
	fp, err := Digest(Canonicalize(t))
	if err != nil {
		return "", fmt.Errorf("checksum table: %w", err)
	}
	return fp, nil
}

// FormatLegacy renders a digest the way older tooling did: as a single
// non-negative integer in hex, so leading zero bytes are dropped and the
// result may be shorter than 128 characters. Use it only to compare against
// fingerprints recorded by that tooling.
func FormatLegacy(sum []byte) string {
	return fmt.Sprintf("%02x", new(big.Int).SetBytes(sum))
}

// Stats summarises a table without canonicalizing it.
type Stats struct {
	Rows       int
	MaxColumns int
	Cells      int
	Quoted     int // cells that canonicalize inside quotes
	EmptyRows  int
}

// Describe counts rows, cells and quoted cells of t.
func Describe(t Table) Stats {
	s := Stats{Rows: len(t)}
	for _, row := range t {
		if len(row) == 0 {
			s.EmptyRows++
		}
		if len(row) > s.MaxColumns {
			s.MaxColumns = len(row)
		}
		s.Cells += len(row)
		for _, cell := range row {
			if strings.ContainsAny(cell, specialChars) {
				s.Quoted++
			}
		}
	}
	return s
}
