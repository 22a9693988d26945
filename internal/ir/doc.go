// Package ir defines the taskflow data model.
//
// Types here are plain values shared by the store, the workflow engine, the
// REST surface and the CLI. They carry no behavior beyond validation of enum
// values, calendar-date arithmetic and the canonical encoding used to chain
// history entries.
//
// # Canonical Encoding
//
// History entries are hash-chained. Each entry's hash covers the RFC 8785
// canonical JSON of its fields plus the previous entry's hash, computed with
// domain separation (see hash.go). Set-valued task columns (assignees, tags)
// are stored in the same canonical form so equal sets always encode to equal
// bytes.
package ir
