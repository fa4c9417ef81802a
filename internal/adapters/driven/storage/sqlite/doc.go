// Package sqlite provides a SQLite-based implementation of the metadata
// store driven ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. A single database
// connection backs three store interfaces:
//
//   - ProductStore: Product persistence
//   - DocumentStore: PolicyDocument persistence
//   - RateTableStore: RateTable sidecar-metadata persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.policyrag/data/metadata.db.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
