package integrity

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
)

// Kind is a stable failure category. Callers branch on Kind rather than on
// error strings.
type Kind string

const (
	// KindConfiguration means the runtime cannot compute fingerprints at all.
	// It is fatal and retrying cannot help.
	KindConfiguration Kind = "configuration"

	// KindIO means a collaborator (parser, document builder or reader) failed.
	// The cause is preserved unchanged.
	KindIO Kind = "io"

	// KindMismatch means the round-tripped table does not fingerprint to the
	// source table. Expected and Actual are both set.
	KindMismatch Kind = "mismatch"
)

// Error is the structured error returned by this package.
type Error struct {
	Kind     Kind
	Op       string
	Expected checksum.Fingerprint
	Actual   checksum.Fingerprint
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindMismatch:
		return fmt.Sprintf("Expected: %s, but got: %s", e.Expected, e.Actual)
	case KindConfiguration:
		return fmt.Sprintf("integrity configuration error: %v", e.Cause)
	default:
		if e.Op == "" {
			return fmt.Sprintf("integrity %s: %v", e.Kind, e.Cause)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// AsMismatch extracts a mismatch error, if err is one.
func AsMismatch(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindMismatch {
		return e, true
	}
	return nil, false
}

func mismatch(expected, actual checksum.Fingerprint) error {
	return &Error{Kind: KindMismatch, Op: "verify", Expected: expected, Actual: actual}
}

func ioError(op string, cause error) error {
	return &Error{Kind: KindIO, Op: op, Cause: cause}
}

// fingerprintError classifies a checksum failure. A missing hash function is
// a configuration fault; anything else is unexpected and reported as I/O.
func fingerprintError(op string, cause error) error {
	if errors.Is(cause, checksum.ErrHashUnavailable) {
		return &Error{Kind: KindConfiguration, Op: op, Cause: cause}
	}
	return ioError(op, cause)
}
