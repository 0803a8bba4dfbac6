// Package csvin parses raw CSV text into a checksum.Table.
//
// Input is comma separated with double-quote quoting and no header row.
// Records may have differing field counts. Legacy single-byte encodings and
// UTF-16 are decoded to UTF-8 before parsing, so every cell handed to the
// fingerprinting code is valid UTF-8.
package csvin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
)

// DefaultEncoding is used when Options.Encoding is empty.
const DefaultEncoding = "utf-8"

// ErrUnsupportedEncoding is returned for an unknown Options.Encoding.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// encodings maps accepted names to decoders. A nil entry means the input is
// already UTF-8 and is validated instead of decoded.
var encodings = map[string]encoding.Encoding{
	"utf-8":        nil,
	"utf8":         nil,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"macintosh":    charmap.Macintosh,
}

// Encodings lists the accepted encoding names.
func Encodings() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options controls parsing.
type Options struct {
	// Encoding of the raw bytes (default utf-8).
	Encoding string

	// MaxBytes caps the raw input size. Zero means unlimited.
	MaxBytes int64
}

// Input is a parsed CSV file.
type Input struct {
	Table    checksum.Table
	Bytes    int64  // raw bytes consumed
	Encoding string // normalized encoding name
}

// Read parses all records from r. Empty input yields a zero-row table.
func Read(r io.Reader, opts Options) (*Input, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Encoding))
	if name == "" {
		name = DefaultEncoding
	}
	enc, ok := encodings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, opts.Encoding)
	}

	var src io.Reader = r
	if opts.MaxBytes > 0 {
		src = &limitedReader{reader: src, remain: opts.MaxBytes}
	}
	counter := NewCountingReader(src)
	src = counter

	if enc == nil {
		src = newBOMSkippingReader(src)
	} else {
		src = enc.NewDecoder().Reader(src)
	}

	table, err := parse(src, enc == nil)
	if err != nil {
		return nil, err
	}
	return &Input{Table: table, Bytes: counter.BytesRead, Encoding: name}, nil
}

// parse reads every record. When validate is set each field must be UTF-8.
func parse(src io.Reader, validate bool) (checksum.Table, error) {
	cr := csv.NewReader(src)
	cr.Comma = ','
	cr.FieldsPerRecord = -1

	table := checksum.Table{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("invalid csv: %w", err)
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if validate {
			for i, field := range record {
				if !utf8.ValidString(field) {
					line, col := cr.FieldPos(i)
					return nil, fmt.Errorf("encoding error: invalid UTF-8 on line %d, column %d", line, col)
				}
			}
		}
		table = append(table, record)
	}
	return table, nil
}
