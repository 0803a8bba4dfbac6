// Package integrity gates document construction on fingerprint equality.
//
// A source table is fingerprinted, handed to a document builder, read back
// from the built document and fingerprinted again. The document is returned
// only when both fingerprints agree. The package never touches files; the
// builder and reader are supplied by the caller.
package integrity

import "github.com/JonMunkholm/sheetseal/internal/checksum"

// BuildFunc constructs an in-memory document holding the table's cells
// positionally.
type BuildFunc[D any] func(t checksum.Table) (D, error)

// ReadFunc reads the cells of a document back into a table.
type ReadFunc[D any] func(doc D) (checksum.Table, error)

// Result is a verified document and the fingerprint both sides agreed on.
type Result[D any] struct {
	Document    D
	Fingerprint checksum.Fingerprint
}

// Verify fingerprints src, builds a document from it, reads the document back
// and compares fingerprints. It returns the document only on a match.
//
// Errors are always *Error: KindConfiguration when SHA-512 is unavailable,
// KindIO wrapping a builder or reader failure, KindMismatch otherwise.
func Verify[D any](src checksum.Table, build BuildFunc[D], read ReadFunc[D]) (*Result[D], error) {
	source, err := checksum.Checksum(src)
	if err != nil {
		return nil, fingerprintError("fingerprint source", err)
	}

	doc, err := build(src)
	if err != nil {
		return nil, ioError("build document", err)
	}

	back, err := read(doc)
	if err != nil {
		return nil, ioError("read document", err)
	}

	result, err := checksum.Checksum(back)
	if err != nil {
		return nil, fingerprintError("fingerprint result", err)
	}

	if err := Compare(source, result); err != nil {
		return nil, err
	}
	return &Result[D]{Document: doc, Fingerprint: source}, nil
}

// Compare returns a KindMismatch error when the fingerprints differ.
func Compare(expected, actual checksum.Fingerprint) error {
	if expected != actual {
		return mismatch(expected, actual)
	}
	return nil
}
