// Package core provides the business logic for CSV to workbook conversion.
//
// This package holds all domain logic independent of any UI or transport
// layer. The web server and the offline CLI both drive the same [Service].
//
// # Conversion
//
// [Service.Convert] parses a CSV, builds a workbook from it and reads the
// workbook back. The workbook is handed out only when the SHA-512
// fingerprints of the source table and the read-back table agree:
//
//  1. Acquire a slot from the [ConversionLimiter]
//  2. Parse the CSV in the requested encoding
//  3. Build and verify the workbook through the integrity gate
//  4. Stamp document properties, with the fingerprint as identifier
//  5. Optionally watermark, encrypt and sign
//  6. Store the document and signature in the CAS
//  7. Record the attempt in the ledger
//
// Every attempt is recorded, including mismatches and failures. A mismatch
// returns the *integrity.Error so callers can show both fingerprints.
//
// # Collaborators
//
// [Deps] carries the optional collaborators. A nil store disables the
// ledger and a nil CAS disables storage, which is how the CLI runs. A nil
// signer skips signing.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - INT001, CFG001: integrity gate
//   - FILE001-FILE005: input file problems
//   - CNV001-CNV005: workbook problems
//   - SIG001, STO001-STO004: signing and storage
//   - DB004-DB007, REQ001-REQ002, RATE001: infrastructure
//
// # Retention
//
// [Service.StartRetention] deletes ledger rows past the retention window in
// batches. Stored documents are content-addressed and are kept.
package core
