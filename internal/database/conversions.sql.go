package database

import (
	"context"
	"net/netip"

	"github.com/jackc/pgx/v5/pgtype"
)

const conversionColumns = `id, file_name, sheet_name, status, source_fingerprint, result_fingerprint,
    document_cid, signature_cid, encoding, bytes_read, row_count, cell_count, encrypted, watermarked,
    error, ip_address, user_agent, duration_ms, created_at`

const insertConversion = `-- name: InsertConversion :one
INSERT INTO conversions (
    id, file_name, sheet_name, status, source_fingerprint, result_fingerprint,
    document_cid, signature_cid, encoding, bytes_read, row_count, cell_count, encrypted, watermarked,
    error, ip_address, user_agent, duration_ms
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
RETURNING ` + conversionColumns

type InsertConversionParams struct {
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
}

func (q *Queries) InsertConversion(ctx context.Context, arg InsertConversionParams) (Conversion, error) {
	row := q.db.QueryRow(ctx, insertConversion,
		arg.ID,
		arg.FileName,
		arg.SheetName,
		arg.Status,
		arg.SourceFingerprint,
		arg.ResultFingerprint,
		arg.DocumentCid,
		arg.SignatureCid,
		arg.Encoding,
		arg.BytesRead,
		arg.RowCount,
		arg.CellCount,
		arg.Encrypted,
		arg.Watermarked,
		arg.Error,
		arg.IpAddress,
		arg.UserAgent,
		arg.DurationMs,
	)
	return scanConversion(row)
}

const getConversion = `-- name: GetConversion :one
SELECT ` + conversionColumns + `
FROM conversions
WHERE id = $1`

func (q *Queries) GetConversion(ctx context.Context, id pgtype.UUID) (Conversion, error) {
	row := q.db.QueryRow(ctx, getConversion, id)
	return scanConversion(row)
}

const listConversions = `-- name: ListConversions :many
SELECT ` + conversionColumns + `
FROM conversions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

type ListConversionsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListConversions(ctx context.Context, arg ListConversionsParams) ([]Conversion, error) {
	rows, err := q.db.Query(ctx, listConversions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Conversion
	for rows.Next() {
		i, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listConversionsByFingerprint = `-- name: ListConversionsByFingerprint :many
SELECT ` + conversionColumns + `
FROM conversions
WHERE source_fingerprint = $1
ORDER BY created_at DESC
LIMIT $2`

type ListConversionsByFingerprintParams struct {
	SourceFingerprint pgtype.Text
	Limit             int32
}

func (q *Queries) ListConversionsByFingerprint(ctx context.Context, arg ListConversionsByFingerprintParams) ([]Conversion, error) {
	rows, err := q.db.Query(ctx, listConversionsByFingerprint, arg.SourceFingerprint, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Conversion
	for rows.Next() {
		i, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countConversionsByStatus = `-- name: CountConversionsByStatus :many
SELECT status, count(*)::bigint
FROM conversions
GROUP BY status`

type CountConversionsByStatusRow struct {
	Status string
	Count  int64
}

func (q *Queries) CountConversionsByStatus(ctx context.Context) ([]CountConversionsByStatusRow, error) {
	rows, err := q.db.Query(ctx, countConversionsByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CountConversionsByStatusRow
	for rows.Next() {
		var i CountConversionsByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteConversionsBefore = `-- name: DeleteConversionsBefore :execrows
DELETE FROM conversions
WHERE id IN (
    SELECT id FROM conversions
    WHERE created_at < $1
    ORDER BY created_at
    LIMIT $2
)`

type DeleteConversionsBeforeParams struct {
	Before pgtype.Timestamptz
	Limit  int32
}

func (q *Queries) DeleteConversionsBefore(ctx context.Context, arg DeleteConversionsBeforeParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteConversionsBefore, arg.Before, arg.Limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversion(row rowScanner) (Conversion, error) {
	var i Conversion
	err := row.Scan(
		&i.ID,
		&i.FileName,
		&i.SheetName,
		&i.Status,
		&i.SourceFingerprint,
		&i.ResultFingerprint,
		&i.DocumentCid,
		&i.SignatureCid,
		&i.Encoding,
		&i.BytesRead,
		&i.RowCount,
		&i.CellCount,
		&i.Encrypted,
		&i.Watermarked,
		&i.Error,
		&i.IpAddress,
		&i.UserAgent,
		&i.DurationMs,
		&i.CreatedAt,
	)
	return i, err
}
