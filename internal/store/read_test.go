package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hcore/internal/ir"
)

func TestReadEntry_RoundTripsEveryKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	grant, err := ir.NewCapTokenGrant("g1", ir.CapAssigned, []ir.Address{"bbob"}, ir.CapFunctions{"z": {"f"}})
	require.NoError(t, err)
	link := ir.LinkData{Base: "bbase", Target: "btarget", LinkType: "likes", Tag: "t"}

	entries := []ir.Entry{
		ir.DnaEntry{Dna: ir.Dna{Name: "chat", Zomes: map[string]ir.Zome{"z": {Functions: []ir.FnDeclaration{{Name: "f"}}}}}},
		ir.AgentIDEntry{Nick: "alice", PubSignKey: "balice"},
		postEntry("hello"),
		ir.DeletionEntry{Deleted: "bgone"},
		ir.LinkAddEntry{Link: link},
		ir.LinkRemoveEntry{Link: link, Removed: []ir.Address{"badd"}},
		ir.CapTokenGrantEntry{Grant: grant},
	}

	var top ir.Address
	for _, e := range entries {
		_, top = commit(t, s, e, top)
	}

	for _, e := range entries {
		t.Run(string(e.EntryType()), func(t *testing.T) {
			got, err := s.ReadEntry(ctx, mustAddress(t, e))
			require.NoError(t, err)
			assert.Equal(t, mustAddress(t, e), mustAddress(t, got))
		})
	}
}

func TestReadEntry_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEntry(context.Background(), "bnothing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReadHeader(context.Background(), "bnothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadHeader_PreservesAddress(t *testing.T) {
	s := createTestStore(t)
	h, addr := commit(t, s, postEntry("precise"), "")

	got, err := s.ReadHeader(context.Background(), addr)
	require.NoError(t, err)

	gotAddr, err := got.Address()
	require.NoError(t, err)
	assert.Equal(t, addr, gotAddr, "header survives storage byte-for-byte")
	assert.True(t, h.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, h.Provenances, got.Provenances)
}

func TestEntryWithHeader(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e := postEntry("content")
	h, _ := commit(t, s, e, "")

	ewh, ok, err := s.EntryWithHeader(ctx, h.EntryAddress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, ewh.Entry)
	assert.Equal(t, h.EntryAddress, ewh.Header.EntryAddress)

	_, ok, err = s.EntryWithHeader(ctx, "bmissing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTop_EmptyChain(t *testing.T) {
	s := createTestStore(t)

	_, _, ok, err := s.Top(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	records, err := s.Headers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestHeaders_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	_, a1 := commit(t, s, postEntry("one"), "")
	_, a2 := commit(t, s, postEntry("two"), a1)
	_, a3 := commit(t, s, postEntry("three"), a2)

	records, err := s.Headers(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []ir.Address{a3, a2, a1}, []ir.Address{records[0].Address, records[1].Address, records[2].Address})
	assert.Equal(t, []int64{3, 2, 1}, []int64{records[0].Seq, records[1].Seq, records[2].Seq})
	assert.Equal(t, a2, records[0].Header.Link)
	assert.True(t, records[2].Header.Link.IsZero())
}

func TestEntryFromChain(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	first := postEntry("first")
	_, a1 := commit(t, s, first, "")
	_, a2 := commit(t, s, postEntry("second"), a1)

	got, err := s.EntryFromChain(ctx, a2, mustAddress(t, first))
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = s.EntryFromChain(ctx, a2, "bnot-committed")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.EntryFromChain(ctx, "", mustAddress(t, first))
	assert.ErrorIs(t, err, ErrNotFound, "empty top walks nothing")
}

func TestFirstOfType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	dna := ir.DnaEntry{Dna: ir.Dna{Name: "chat"}}
	_, a1 := commit(t, s, dna, "")
	_, a2 := commit(t, s, ir.AgentIDEntry{Nick: "alice", PubSignKey: "balice"}, a1)
	commit(t, s, ir.AgentIDEntry{Nick: "alice2", PubSignKey: "balice2"}, a2)

	got, err := s.FirstOfType(ctx, ir.EntryTypeDna)
	require.NoError(t, err)
	assert.Equal(t, dna, got)

	got, err = s.FirstOfType(ctx, ir.EntryTypeAgentID)
	require.NoError(t, err)
	assert.Equal(t, ir.AgentIDEntry{Nick: "alice", PubSignKey: "balice"}, got)

	_, err = s.FirstOfType(ctx, ir.EntryTypeCapTokenGrant)
	assert.ErrorIs(t, err, ErrNotFound)
}
