package integrity

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
)

// memDoc is a trivial document model: a deep copy of the table.
type memDoc struct {
	rows [][]string
}

func buildMem(t checksum.Table) (*memDoc, error) {
	doc := &memDoc{rows: make([][]string, len(t))}
	for i, row := range t {
		doc.rows[i] = append([]string(nil), row...)
	}
	return doc, nil
}

func readMem(doc *memDoc) (checksum.Table, error) {
	return checksum.Table(doc.rows), nil
}

var sample = checksum.Table{
	{"some", "really", "stupid", "csv", "file"},
	{"that", "I", "would", "never", "truly"},
}

func TestVerify_RoundTripAccepted(t *testing.T) {
	res, err := Verify(sample, buildMem, readMem)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	want, _ := checksum.Checksum(sample)
	if res.Fingerprint != want {
		t.Errorf("Fingerprint = %s, want %s", res.Fingerprint, want)
	}
	if len(res.Document.rows) != 2 {
		t.Errorf("Document rows = %d, want 2", len(res.Document.rows))
	}
}

func TestVerify_EmptyTable(t *testing.T) {
	res, err := Verify(checksum.Table{}, buildMem, readMem)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	want, _ := checksum.Digest("")
	if res.Fingerprint != want {
		t.Errorf("Fingerprint = %s, want %s", res.Fingerprint, want)
	}
}

func TestVerify_MismatchDetected(t *testing.T) {
	tamper := func(doc *memDoc) (checksum.Table, error) {
		out, _ := readMem(doc)
		altered := make(checksum.Table, len(out))
		for i, row := range out {
			altered[i] = append([]string(nil), row...)
		}
		altered[1][2] = "could"
		return altered, nil
	}

	res, err := Verify(sample, buildMem, tamper)
	if res != nil {
		t.Fatal("Verify() returned a document despite a mismatch")
	}
	if !IsKind(err, KindMismatch) {
		t.Fatalf("Verify() error = %v, want mismatch", err)
	}

	mm, ok := AsMismatch(err)
	if !ok {
		t.Fatal("AsMismatch() = false")
	}

	wantExpected, _ := checksum.Checksum(sample)
	altered := checksum.Table{sample[0], {"that", "I", "could", "never", "truly"}}
	wantActual, _ := checksum.Checksum(altered)

	if mm.Expected != wantExpected {
		t.Errorf("Expected = %s, want %s", mm.Expected, wantExpected)
	}
	if mm.Actual != wantActual {
		t.Errorf("Actual = %s, want %s", mm.Actual, wantActual)
	}
	if mm.Expected == mm.Actual {
		t.Error("mismatch carries identical fingerprints")
	}

	wantMsg := "Expected: " + string(wantExpected) + ", but got: " + string(wantActual)
	if err.Error() != wantMsg {
		t.Errorf("Error() = %q, want %q", err.Error(), wantMsg)
	}
}

func TestVerify_DroppedRowDetected(t *testing.T) {
	drop := func(doc *memDoc) (checksum.Table, error) {
		return checksum.Table(doc.rows[:1]), nil
	}
	_, err := Verify(sample, buildMem, drop)
	if !IsKind(err, KindMismatch) {
		t.Fatalf("Verify() error = %v, want mismatch", err)
	}
}

func TestVerify_CollaboratorErrorsPropagate(t *testing.T) {
	errDisk := errors.New("disk on fire")

	tests := []struct {
		name  string
		build BuildFunc[*memDoc]
		read  ReadFunc[*memDoc]
	}{
		{
			name:  "build failure",
			build: func(checksum.Table) (*memDoc, error) { return nil, errDisk },
			read:  readMem,
		},
		{
			name:  "read failure",
			build: buildMem,
			read:  func(*memDoc) (checksum.Table, error) { return nil, errDisk },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(sample, tt.build, tt.read)
			if err == nil {
				t.Fatal("Verify() expected error")
			}
			if !errors.Is(err, errDisk) {
				t.Errorf("errors.Is(err, cause) = false; err = %v", err)
			}
			if !IsKind(err, KindIO) {
				t.Errorf("kind should be io, got %v", err)
			}
			if IsKind(err, KindMismatch) {
				t.Error("collaborator failure reported as mismatch")
			}
		})
	}
}

func TestCompare(t *testing.T) {
	a, _ := checksum.Digest("a\n")
	b, _ := checksum.Digest("b\n")

	if err := Compare(a, a); err != nil {
		t.Errorf("Compare(a, a) = %v, want nil", err)
	}
	err := Compare(a, b)
	if !IsKind(err, KindMismatch) {
		t.Fatalf("Compare(a, b) = %v, want mismatch", err)
	}
}

func TestFingerprintError_Classification(t *testing.T) {
	err := fingerprintError("fingerprint source", checksum.ErrHashUnavailable)
	if !IsKind(err, KindConfiguration) {
		t.Errorf("missing hash should be a configuration error, got %v", err)
	}
	if !errors.Is(err, checksum.ErrHashUnavailable) {
		t.Error("configuration error should wrap ErrHashUnavailable")
	}

	other := fingerprintError("fingerprint source", errors.New("boom"))
	if IsKind(other, KindConfiguration) {
		t.Error("unrelated failure classified as configuration")
	}
}

func TestError_NilSafe(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Errorf("nil Error() = %q", e.Error())
	}
	if e.Unwrap() != nil {
		t.Error("nil Unwrap() should be nil")
	}
}
