// Package ir provides the core data model shared by every hcore package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Action is a closed sum type; AllActionKinds enumerates every kind
//   - Entries and headers are content addressed (CIDv1, raw, sha2-256) over
//     canonical JSON, so the same logical value always has the same Address
//   - All JSON tags use snake_case
//   - Action ordering uses the dispatch sequence number, never wall-clock time
package ir
