// Package store provides SQLite-backed durable storage for taskflow.
//
// The store holds:
//   - Tasks: mutable rows guarded by an optimistic version column
//   - History: append-only, hash-chained audit log per task
//   - Time entries: append-only effort log; time_spent is always re-derived
//   - Edges: prerequisite (directed) and linked (symmetric) task relations
//   - Members, projects, comments and attachments: thin directory tables
//
// # Critical Patterns
//
// Atomic mutations: every engine operation runs inside WithTx. The task write
// and its history append either both commit or neither does.
//
// Optimistic concurrency: UpdateTask writes with WHERE id = ? AND version = ?
// and increments version. A mismatch returns ErrVersionConflict.
//
// Immutability: triggers reject UPDATE on history and time_entries.
//
// Deterministic ordering: list queries always end with an id tiebreaker.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity and cascades
package store
