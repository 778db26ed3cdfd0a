// Package store provides SQLite-backed durable storage for an agent's
// source chain.
//
// The chain is append-only:
//   - Entries: content-addressed entry envelopes, stored once per address
//   - Headers: one row per commit, linked to the previous header
//
// # Patterns
//
// Logical ordering:
//   - Chain position is the seq INTEGER column, never the header timestamp
//   - Listings use ORDER BY seq, so identical chains read back identically
//
// Encoding:
//   - Entry envelopes and headers are stored as CBOR blobs (internal/codec)
//   - Addresses are recomputed from the decoded values on write, never trusted
//     from the caller
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
