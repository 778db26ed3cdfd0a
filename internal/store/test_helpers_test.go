package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/hcore/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// postEntry creates an app entry of type "post".
func postEntry(body string) ir.AppEntry {
	raw, _ := json.Marshal(body)
	return ir.AppEntry{Type: "post", Value: raw}
}

// commit builds a header for e linked to prev and writes both.
func commit(t *testing.T, s *Store, e ir.Entry, prev ir.Address) (ir.ChainHeader, ir.Address) {
	t.Helper()
	addr, err := ir.AddressOf(e)
	if err != nil {
		t.Fatalf("AddressOf() failed: %v", err)
	}
	h := ir.ChainHeader{
		EntryType:    e.EntryType(),
		EntryAddress: addr,
		Provenances:  []ir.Provenance{{Source: "bagent", Signature: "sig"}},
		Link:         prev,
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
	}
	headerAddr, err := s.WriteCommit(context.Background(), e, h)
	if err != nil {
		t.Fatalf("WriteCommit() failed: %v", err)
	}
	return h, headerAddr
}
