package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetseal/internal/signature"
	"github.com/JonMunkholm/sheetseal/internal/storage"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit caps a single List page.
const MaxListLimit = 500

var (
	// ErrLedgerDisabled is returned by history calls on a service without a store.
	ErrLedgerDisabled = errors.New("conversion ledger not configured")

	// ErrDocumentUnavailable means the conversion kept no stored object.
	ErrDocumentUnavailable = errors.New("document not stored for this conversion")
)

// Get returns one ledger row.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ConversionRecord, error) {
	if s.deps.Store == nil {
		return nil, ErrLedgerDisabled
	}
	return s.deps.Store.GetConversion(ctx, id)
}

// List returns the most recent conversions, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]ConversionRecord, error) {
	if s.deps.Store == nil {
		return nil, ErrLedgerDisabled
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)
	return s.deps.Store.ListConversions(ctx, limit, offset)
}

// History returns earlier conversions of the same source content.
func (s *Service) History(ctx context.Context, fingerprint string, limit int) ([]ConversionRecord, error) {
	if s.deps.Store == nil {
		return nil, ErrLedgerDisabled
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.deps.Store.ListByFingerprint(ctx, fingerprint, min(limit, MaxListLimit))
}

// Stats counts ledger rows per status.
func (s *Service) Stats(ctx context.Context) (map[ConversionStatus]int64, error) {
	if s.deps.Store == nil {
		return nil, ErrLedgerDisabled
	}
	return s.deps.Store.CountByStatus(ctx)
}

// Document fetches the stored workbook of a verified conversion.
func (s *Service) Document(ctx context.Context, id uuid.UUID) ([]byte, *ConversionRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.fetch(ctx, rec.DocumentCID)
	if err != nil {
		return nil, rec, err
	}
	return data, rec, nil
}

// SignatureEnvelope fetches and decodes the stored signature of a conversion.
func (s *Service) SignatureEnvelope(ctx context.Context, id uuid.UUID) (*signature.Envelope, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.fetch(ctx, rec.SignatureCID)
	if err != nil {
		return nil, err
	}
	return signature.Decode(data)
}

func (s *Service) fetch(ctx context.Context, id string) ([]byte, error) {
	if s.deps.CAS == nil || id == "" {
		return nil, ErrDocumentUnavailable
	}
	c, err := storage.Parse(id)
	if err != nil {
		return nil, err
	}
	data, err := s.deps.CAS.Get(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return data, nil
}
