package database

import (
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

type Conversion struct {
	ID                pgtype.UUID
	FileName          string
	SheetName         string
	Status            string
	SourceFingerprint pgtype.Text
	ResultFingerprint pgtype.Text
	DocumentCid       pgtype.Text
	SignatureCid      pgtype.Text
	Encoding          string
	BytesRead         int64
	RowCount          int32
	CellCount         int32
	Encrypted         bool
	Watermarked       bool
	Error             pgtype.Text
	IpAddress         *netip.Addr
	UserAgent         pgtype.Text
	DurationMs        int64
	CreatedAt         pgtype.Timestamptz
}
