package csvin

// streaming.go holds the io.Reader wrappers applied to raw CSV bytes before
// they reach the parser:
//
//   - bomSkippingReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - limitedReader: fails once more than a byte budget has been read
//   - CountingReader: tracks bytes read for logging
//
// Apart from dropping a BOM none of them rewrite content. A fingerprint is
// only meaningful if the parser sees the bytes the caller sent.

import (
	"errors"
	"fmt"
	"io"
)

// ErrFileTooLarge is returned when input exceeds Options.MaxBytes.
var ErrFileTooLarge = errors.New("file too large")

// bomSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type bomSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	pending    []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{reader: r}
}

// Read implements io.Reader. The first call peeks three bytes.
func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		var head [3]byte
		n, err := io.ReadFull(r.reader, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
			n = 0
		}
		r.pending = append(r.pending[:0], head[:n]...)
		if len(r.pending) == 0 && err == io.EOF {
			return 0, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// limitedReader fails with ErrFileTooLarge instead of silently truncating.
type limitedReader struct {
	reader io.Reader
	remain int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remain < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remain+1 {
		p = p[:l.remain+1]
	}
	n, err := l.reader.Read(p)
	l.remain -= int64(n)
	if l.remain < 0 {
		return 0, fmt.Errorf("%w: limit exceeded", ErrFileTooLarge)
	}
	return n, err
}

// CountingReader tracks bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
