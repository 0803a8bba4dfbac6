// Package storagetest holds a conformance suite for storage.CAS backends.
package storagetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/JonMunkholm/sheetseal/internal/storage"
)

// NewCAS constructs a fresh, empty CAS for one subtest.
type NewCAS func(t *testing.T) storage.CAS

// Run exercises the CAS contract against newCAS.
func Run(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("PK\x03\x04 workbook bytes")

		id, err := cas.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		wantID, err := storage.Sum(want)
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("Put() CID = %s, want %s", id, wantID)
		}

		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get() = %q, want %q", got, want)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) error = %v", err)
		}
		id2, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) error = %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put() not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := storage.Sum(b)
		if err != nil {
			t.Fatalf("Sum() error = %v", err)
		}

		if ok, err := cas.Has(ctx, id); err != nil || ok {
			t.Fatalf("Has(missing) = %v, %v, want false, nil", ok, err)
		}
		if _, err := cas.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get(missing) error = %v, want %v", err, storage.ErrNotFound)
		}

		if _, err := cas.Put(ctx, b); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if ok, err := cas.Has(ctx, id); err != nil || !ok {
			t.Fatalf("Has(after put) = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("EmptyObject", func(t *testing.T) {
		cas := newCAS(t)
		id, err := cas.Put(ctx, []byte{})
		if err != nil {
			t.Fatalf("Put(empty) error = %v", err)
		}
		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(empty) error = %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("Get(empty) = %q, want empty", got)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if ok, _ := cas.Has(ctx, undef); ok {
			t.Fatal("Has(undef) = true, want false")
		}
		if _, err := cas.Get(ctx, undef); err == nil {
			t.Fatal("Get(undef) error = nil, want error")
		}
	})
}
