package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users can quote the code; support staff look it up
// here and check the logs for the original error.
//
// # Error Codes Reference
//
// Integrity (INT, CFG):
//
//	INT001 - Workbook contents do not match the source file
//	CFG001 - SHA-512 unavailable on this host
//
// File (FILE):
//
//	FILE001 - File exceeds the configured size limit
//	FILE002 - File is not valid CSV
//	FILE003 - File bytes are invalid in the declared encoding
//	FILE004 - No file supplied
//	FILE005 - Encoding name not supported
//
// Conversion (CNV):
//
//	CNV001 - Sheet name rejected by the workbook format
//	CNV002 - Encrypted workbook and no password given
//	CNV003 - Wrong workbook password
//	CNV004 - Upload is not a workbook
//	CNV005 - Watermark image format not supported
//
// Signing and storage (SIG, STO):
//
//	SIG001 - Signing the document failed
//	STO001 - Conversion id unknown
//	STO002 - Conversion kept no stored document
//	STO003 - Stored object failed its content check
//	STO004 - Ledger not configured
//
// Database (DB):
//
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// Request (REQ, RATE):
//
//	REQ001 - Request cancelled
//	REQ002 - Request deadline exceeded
//	RATE001 - Too many requests or conversions in flight
//
// ERR000 is the fallback when nothing matches.
//
// Typed errors are matched first with errors.Is, so wrapping never hides
// them. Remaining errors fall through to case-insensitive substring patterns,
// where the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetseal/internal/csvin"
	"github.com/JonMunkholm/sheetseal/internal/integrity"
	"github.com/JonMunkholm/sheetseal/internal/storage"
	"github.com/JonMunkholm/sheetseal/internal/workbook"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgMismatch = UserMessage{
		Message: "Workbook contents do not match the source file",
		Action:  "The file was not converted. Report the code and both fingerprints",
		Code:    "INT001",
	}
	msgHashUnavailable = UserMessage{
		Message: "Fingerprinting is unavailable on this server",
		Action:  "Contact support",
		Code:    "CFG001",
	}
	msgTooManyRequests = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// errorTarget maps a sentinel error to its message.
type errorTarget struct {
	target error
	msg    UserMessage
}

var errorTargets = []errorTarget{
	{csvin.ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}},
	{ErrNoData, UserMessage{
		Message: "No file was provided",
		Action:  "Please select a CSV file",
		Code:    "FILE004",
	}},
	{csvin.ErrUnsupportedEncoding, UserMessage{
		Message: "The selected encoding is not supported",
		Action:  "Choose one of the listed encodings or save the file as UTF-8",
		Code:    "FILE005",
	}},
	{workbook.ErrInvalidSheetName, UserMessage{
		Message: "The sheet name is not allowed",
		Action:  "Use at most 31 characters and none of : \\ / ? * [ ]",
		Code:    "CNV001",
	}},
	{workbook.ErrPasswordRequired, UserMessage{
		Message: "The workbook is encrypted",
		Action:  "Enter the workbook password",
		Code:    "CNV002",
	}},
	{workbook.ErrWrongPassword, UserMessage{
		Message: "The workbook password is incorrect",
		Action:  "Check the password and try again",
		Code:    "CNV003",
	}},
	{excelize.ErrWorkbookFileFormat, UserMessage{
		Message: "The uploaded file is not an XLSX workbook",
		Action:  "Upload the .xlsx file produced by a conversion",
		Code:    "CNV004",
	}},
	{workbook.ErrUnsupportedImage, UserMessage{
		Message: "The watermark image format is not supported",
		Action:  "Use a PNG, JPEG, GIF, BMP or TIFF image",
		Code:    "CNV005",
	}},
	{ErrConversionNotFound, UserMessage{
		Message: "Conversion not found",
		Action:  "Check the conversion id",
		Code:    "STO001",
	}},
	{ErrDocumentUnavailable, UserMessage{
		Message: "No document was stored for this conversion",
		Action:  "Only verified conversions keep a document. Convert the file again",
		Code:    "STO002",
	}},
	{storage.ErrNotFound, UserMessage{
		Message: "No document was stored for this conversion",
		Action:  "Only verified conversions keep a document. Convert the file again",
		Code:    "STO002",
	}},
	{storage.ErrCIDMismatch, UserMessage{
		Message: "The stored document failed its content check",
		Action:  "Contact support",
		Code:    "STO003",
	}},
	{storage.ErrImmutable, UserMessage{
		Message: "The stored document failed its content check",
		Action:  "Contact support",
		Code:    "STO003",
	}},
	{ErrLedgerDisabled, UserMessage{
		Message: "Conversion history is not available",
		Action:  "History requires a database connection",
		Code:    "STO004",
	}},
	{ErrTooManyConversions, UserMessage{
		Message: "Too many conversions in progress",
		Action:  "Please wait a moment and try again",
		Code:    "RATE001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that only carry text, such as those from the
// database driver. Order matters: more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check quoting: every opening quote needs a closing quote",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains characters that are invalid in the selected encoding",
			Action:  "Choose the encoding the file was saved with",
			Code:    "FILE003",
		},
	},
	{
		pattern: "sign document",
		msg: UserMessage{
			Message: "The document could not be signed",
			Action:  "Contact support",
			Code:    "SIG001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "rate limit",
		msg:     msgTooManyRequests,
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case integrity.IsKind(err, integrity.KindMismatch):
		return msgMismatch
	case integrity.IsKind(err, integrity.KindConfiguration):
		return msgHashUnavailable
	}

	for _, et := range errorTargets {
		if errors.Is(err, et.target) {
			return et.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error() returns
// the user message; Unwrap returns the original for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
