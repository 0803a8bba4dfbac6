package core

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
	"github.com/JonMunkholm/sheetseal/internal/integrity"
	"github.com/JonMunkholm/sheetseal/internal/signature"
)

// ConversionStatus is the outcome recorded for every conversion attempt.
type ConversionStatus string

const (
	StatusVerified ConversionStatus = "verified"
	StatusMismatch ConversionStatus = "mismatch"
	StatusFailed   ConversionStatus = "failed"
)

// ConvertRequest describes one CSV to convert.
type ConvertRequest struct {
	FileName  string
	Data      io.Reader
	SheetName string // defaults to Config.SheetName
	Encoding  string // defaults to Config.Encoding
	Password  string // encrypts the workbook when set
}

// ConvertResult is a verified workbook and everything recorded about it.
type ConvertResult struct {
	ID           uuid.UUID            `json:"id"`
	FileName     string               `json:"fileName"`
	SheetName    string               `json:"sheetName"`
	Fingerprint  checksum.Fingerprint `json:"fingerprint"`
	Rows         int                  `json:"rows"`
	Cells        int                  `json:"cells"`
	BytesRead    int64                `json:"bytesRead"`
	DocumentCID  string               `json:"documentCid,omitempty"`
	SignatureCID string               `json:"signatureCid,omitempty"`
	Encrypted    bool                 `json:"encrypted"`
	Watermarked  bool                 `json:"watermarked"`
	Document     []byte               `json:"-"`
	Signature    *signature.Envelope  `json:"signature,omitempty"`
	Duration     time.Duration        `json:"duration"`
}

// ConversionRecord is one row of the conversion ledger.
type ConversionRecord struct {
	ID                uuid.UUID        `json:"id"`
	FileName          string           `json:"fileName"`
	SheetName         string           `json:"sheetName"`
	Status            ConversionStatus `json:"status"`
	SourceFingerprint string           `json:"sourceFingerprint,omitempty"`
	ResultFingerprint string           `json:"resultFingerprint,omitempty"`
	DocumentCID       string           `json:"documentCid,omitempty"`
	SignatureCID      string           `json:"signatureCid,omitempty"`
	Encoding          string           `json:"encoding"`
	BytesRead         int64            `json:"bytesRead"`
	Rows              int              `json:"rows"`
	Cells             int              `json:"cells"`
	Encrypted         bool             `json:"encrypted"`
	Watermarked       bool             `json:"watermarked"`
	Error             string           `json:"error,omitempty"`
	IPAddress         string           `json:"ipAddress,omitempty"`
	UserAgent         string           `json:"userAgent,omitempty"`
	Duration          time.Duration    `json:"duration"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// Inspection summarizes a parsed CSV without building a document.
type Inspection struct {
	FileName       string               `json:"fileName,omitempty"`
	Encoding       string               `json:"encoding"`
	BytesRead      int64                `json:"bytesRead"`
	Rows           int                  `json:"rows"`
	MaxColumns     int                  `json:"maxColumns"`
	Cells          int                  `json:"cells"`
	QuotedCells    int                  `json:"quotedCells"`
	EmptyRows      int                  `json:"emptyRows"`
	CanonicalBytes int                  `json:"canonicalBytes"`
	Fingerprint    checksum.Fingerprint `json:"fingerprint"`
	Legacy         string               `json:"legacyFingerprint"`
	Convertible    bool                 `json:"convertible"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// AuditReport compares an existing workbook with the CSV it claims to hold.
type AuditReport struct {
	SourceFingerprint   checksum.Fingerprint `json:"sourceFingerprint"`
	WorkbookFingerprint checksum.Fingerprint `json:"workbookFingerprint"`
	EmbeddedIdentifier  string               `json:"embeddedIdentifier,omitempty"`
	Sheet               string               `json:"sheet"`
	Rows                int                  `json:"rows"`
	ContentMatch        bool                 `json:"contentMatch"`
	IdentifierMatch     bool                 `json:"identifierMatch"`
	Match               bool                 `json:"match"`
	Err                 *integrity.Error     `json:"-"`
}

// BatchItem is the outcome of one file in ConvertDir.
type BatchItem struct {
	Path   string
	Result *ConvertResult
	Err    error
}
