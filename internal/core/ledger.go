package core

// ledger.go persists conversion records.
//
// ConversionStore is the seam between the service and postgres. PgStore is
// the production implementation over the generated queries; tests supply an
// in-memory store.

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/sheetseal/internal/database"
)

// ErrConversionNotFound is returned for an unknown conversion id.
var ErrConversionNotFound = errors.New("conversion not found")

// ConversionStore records and queries conversions.
type ConversionStore interface {
	InsertConversion(ctx context.Context, rec *ConversionRecord) error
	GetConversion(ctx context.Context, id uuid.UUID) (*ConversionRecord, error)
	ListConversions(ctx context.Context, limit, offset int) ([]ConversionRecord, error)
	ListByFingerprint(ctx context.Context, fp string, limit int) ([]ConversionRecord, error)
	CountByStatus(ctx context.Context) (map[ConversionStatus]int64, error)
	DeleteConversionsBefore(ctx context.Context, before time.Time, limit int) (int64, error)
}

// PgStore is a ConversionStore backed by postgres.
type PgStore struct {
	q *db.Queries
}

// NewPgStore wraps a pool, connection or transaction.
func NewPgStore(conn db.DBTX) *PgStore {
	return &PgStore{q: db.New(conn)}
}

func (p *PgStore) InsertConversion(ctx context.Context, rec *ConversionRecord) error {
	row, err := p.q.InsertConversion(ctx, db.InsertConversionParams{
		ID:                toPgUUID(rec.ID),
		FileName:          rec.FileName,
		SheetName:         rec.SheetName,
		Status:            string(rec.Status),
		SourceFingerprint: toPgText(rec.SourceFingerprint),
		ResultFingerprint: toPgText(rec.ResultFingerprint),
		DocumentCid:       toPgText(rec.DocumentCID),
		SignatureCid:      toPgText(rec.SignatureCID),
		Encoding:          rec.Encoding,
		BytesRead:         rec.BytesRead,
		RowCount:          int32(rec.Rows),
		CellCount:         int32(rec.Cells),
		Encrypted:         rec.Encrypted,
		Watermarked:       rec.Watermarked,
		Error:             toPgText(rec.Error),
		IpAddress:         toAddr(rec.IPAddress),
		UserAgent:         toPgText(rec.UserAgent),
		DurationMs:        rec.Duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	rec.CreatedAt = row.CreatedAt.Time
	return nil
}

func (p *PgStore) GetConversion(ctx context.Context, id uuid.UUID) (*ConversionRecord, error) {
	row, err := p.q.GetConversion(ctx, toPgUUID(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	rec := fromRow(row)
	return &rec, nil
}

func (p *PgStore) ListConversions(ctx context.Context, limit, offset int) ([]ConversionRecord, error) {
	rows, err := p.q.ListConversions(ctx, db.ListConversionsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return fromRows(rows), nil
}

func (p *PgStore) ListByFingerprint(ctx context.Context, fp string, limit int) ([]ConversionRecord, error) {
	rows, err := p.q.ListConversionsByFingerprint(ctx, db.ListConversionsByFingerprintParams{
		SourceFingerprint: toPgText(fp),
		Limit:             int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list conversions by fingerprint: %w", err)
	}
	return fromRows(rows), nil
}

func (p *PgStore) CountByStatus(ctx context.Context) (map[ConversionStatus]int64, error) {
	rows, err := p.q.CountConversionsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count conversions: %w", err)
	}
	counts := make(map[ConversionStatus]int64, len(rows))
	for _, r := range rows {
		counts[ConversionStatus(r.Status)] = r.Count
	}
	return counts, nil
}

func (p *PgStore) DeleteConversionsBefore(ctx context.Context, before time.Time, limit int) (int64, error) {
	n, err := p.q.DeleteConversionsBefore(ctx, db.DeleteConversionsBeforeParams{
		Before: pgtype.Timestamptz{Time: before, Valid: true},
		Limit:  int32(limit),
	})
	if err != nil {
		return 0, fmt.Errorf("delete conversions: %w", err)
	}
	return n, nil
}

func fromRows(rows []db.Conversion) []ConversionRecord {
	out := make([]ConversionRecord, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out
}

func fromRow(r db.Conversion) ConversionRecord {
	rec := ConversionRecord{
		ID:                uuid.UUID(r.ID.Bytes),
		FileName:          r.FileName,
		SheetName:         r.SheetName,
		Status:            ConversionStatus(r.Status),
		SourceFingerprint: r.SourceFingerprint.String,
		ResultFingerprint: r.ResultFingerprint.String,
		DocumentCID:       r.DocumentCid.String,
		SignatureCID:      r.SignatureCid.String,
		Encoding:          r.Encoding,
		BytesRead:         r.BytesRead,
		Rows:              int(r.RowCount),
		Cells:             int(r.CellCount),
		Encrypted:         r.Encrypted,
		Watermarked:       r.Watermarked,
		Error:             r.Error.String,
		UserAgent:         r.UserAgent.String,
		Duration:          time.Duration(r.DurationMs) * time.Millisecond,
		CreatedAt:         r.CreatedAt.Time,
	}
	if r.IpAddress != nil {
		rec.IPAddress = r.IpAddress.String()
	}
	return rec
}

// toPgText maps "" to NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// toAddr returns nil for anything that is not an IP literal.
func toAddr(s string) *netip.Addr {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil
	}
	return &addr
}
