// Package sqlite implements the store contract on an embedded SQLite
// database (modernc.org/sqlite, no cgo) for single-device use. Timestamps
// are stored as fixed-width UTC RFC 3339 text and UUIDs as their canonical string.
package sqlite
