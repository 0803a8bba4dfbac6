package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id                 UUID PRIMARY KEY,
    file_name          TEXT NOT NULL,
    sheet_name         TEXT NOT NULL,
    status             TEXT NOT NULL CHECK (status IN ('verified', 'mismatch', 'failed')),
    source_fingerprint TEXT,
    result_fingerprint TEXT,
    document_cid       TEXT,
    signature_cid      TEXT,
    encoding           TEXT NOT NULL DEFAULT 'utf-8',
    bytes_read         BIGINT NOT NULL DEFAULT 0,
    row_count          INTEGER NOT NULL DEFAULT 0,
    cell_count         INTEGER NOT NULL DEFAULT 0,
    encrypted          BOOLEAN NOT NULL DEFAULT FALSE,
    watermarked        BOOLEAN NOT NULL DEFAULT FALSE,
    error              TEXT,
    ip_address         INET,
    user_agent         TEXT,
    duration_ms        BIGINT NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS conversions_created_at_idx ON conversions (created_at DESC);
CREATE INDEX IF NOT EXISTS conversions_source_fingerprint_idx ON conversions (source_fingerprint);
`

// EnsureSchema creates the ledger table and indexes if they do not exist.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
