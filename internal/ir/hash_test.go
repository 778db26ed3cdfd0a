package ir

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressOfDeterminism(t *testing.T) {
	e := AppEntry{Type: "post", Value: json.RawMessage(`{"title":"hi","body":"there"}`)}

	a1, err := AddressOf(e)
	require.NoError(t, err)
	a2, err := AddressOf(e)
	require.NoError(t, err)

	assert.Equal(t, a1, a2, "AddressOf must be deterministic")
	assert.True(t, strings.HasPrefix(string(a1), "b"), "CIDv1 strings are base32 multibase")
}

func TestAddressOfIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a1, err := AddressOf(AppEntry{Type: "post", Value: json.RawMessage(`{"a":1,"b":2}`)})
	require.NoError(t, err)
	a2, err := AddressOf(AppEntry{Type: "post", Value: json.RawMessage(`{ "b": 2, "a": 1 }`)})
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
}

func TestAddressOfChangesWithInput(t *testing.T) {
	a1, err := AddressOf(AppEntry{Type: "post", Value: json.RawMessage(`"x"`)})
	require.NoError(t, err)
	a2, err := AddressOf(AppEntry{Type: "comment", Value: json.RawMessage(`"x"`)})
	require.NoError(t, err)
	a3, err := AddressOf(AppEntry{Type: "post", Value: json.RawMessage(`"y"`)})
	require.NoError(t, err)

	assert.NotEqual(t, a1, a2, "different entry types should produce different addresses")
	assert.NotEqual(t, a1, a3, "different content should produce different addresses")
}

func TestAddressIsCIDv1RawSHA256(t *testing.T) {
	addr, err := AddressOf(DeletionEntry{Deleted: "bafkqaaa"})
	require.NoError(t, err)

	c, err := addr.CID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Version())
	assert.Equal(t, uint64(cid.Raw), c.Type())

	decoded, err := multihash.Decode(c.Hash())
	require.NoError(t, err)
	assert.Equal(t, uint64(multihash.SHA2_256), decoded.Code)
}

func TestAgentIDAddressIsSigningKey(t *testing.T) {
	agent := AgentIDEntry{Nick: "alice", PubSignKey: "bagentkey"}

	addr, err := AddressOf(agent)
	require.NoError(t, err)
	assert.Equal(t, Address("bagentkey"), addr)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	entryAddr, err := addressWithDomain(DomainEntry, data)
	require.NoError(t, err)
	headerAddr, err := addressWithDomain(DomainHeader, data)
	require.NoError(t, err)

	assert.NotEqual(t, entryAddr, headerAddr)
}

func TestHeaderAddress(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := ChainHeader{
		EntryType:    "post",
		EntryAddress: "bafkentry",
		Provenances:  []Provenance{{Source: "bagent", Signature: "c2ln"}},
		Timestamp:    ts,
	}

	a1, err := h.Address()
	require.NoError(t, err)

	h.Link = a1
	a2, err := h.Address()
	require.NoError(t, err)

	assert.NotEqual(t, a1, a2, "the previous-header link is part of the header address")
}

func TestAddressCIDRejectsNonCID(t *testing.T) {
	_, err := Address("not-a-cid").CID()
	require.Error(t, err)
}
