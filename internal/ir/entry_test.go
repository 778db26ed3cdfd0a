package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDna() *Dna {
	return &Dna{
		Name:    "test_dna",
		Version: "1",
		UUID:    "00000000-0000-0000-0000-000000000000",
		Zomes: map[string]Zome{
			"test_zome": {
				EntryTypes: map[string]EntryTypeDef{
					"post":   {Sharing: SharingPublic},
					"secret": {Sharing: SharingPrivate},
				},
				Functions: []FnDeclaration{{Name: "test"}, {Name: "commit_post"}},
			},
		},
	}
}

func TestEntryEnvelopeRoundTrip(t *testing.T) {
	grant, err := NewCapTokenGrant("g", CapAssigned, []Address{"bagent"}, CapFunctions{"z": {"f"}})
	require.NoError(t, err)

	entries := []Entry{
		AppEntry{Type: "post", Value: json.RawMessage(`{"title":"hi"}`)},
		DnaEntry{Dna: *testDna()},
		AgentIDEntry{Nick: "alice", PubSignKey: "bagent"},
		DeletionEntry{Deleted: "bafkold"},
		LinkAddEntry{Link: LinkData{Base: "b1", Target: "b2", LinkType: "likes", Tag: "t"}},
		LinkRemoveEntry{Link: LinkData{Base: "b1", Target: "b2"}, Removed: []Address{"b3"}},
		CapTokenGrantEntry{Grant: grant},
	}

	for _, e := range entries {
		t.Run(string(e.EntryType()), func(t *testing.T) {
			env, err := EncodeEntry(e)
			require.NoError(t, err)
			assert.Equal(t, e.EntryType(), env.EntryType)

			decoded, err := env.Decode()
			require.NoError(t, err)
			assert.Equal(t, e, decoded)
		})
	}
}

func TestEncodeEntryRejectsBadAppEntries(t *testing.T) {
	_, err := EncodeEntry(AppEntry{Type: "%fake", Value: json.RawMessage(`1`)})
	require.Error(t, err)

	_, err = EncodeEntry(AppEntry{Type: "post", Value: json.RawMessage(`{`)})
	require.Error(t, err)

	_, err = EncodeEntry(nil)
	require.Error(t, err)
}

func TestDecodeUnknownSystemType(t *testing.T) {
	_, err := EntryEnvelope{EntryType: "%mystery", Content: json.RawMessage(`{}`)}.Decode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown system entry type")
}

func TestCanPublish(t *testing.T) {
	dna := testDna()

	tests := []struct {
		entryType EntryType
		dna       *Dna
		want      bool
	}{
		{"post", dna, true},
		{"secret", dna, false},
		{"undeclared", dna, false},
		{"post", nil, false},
		{EntryTypeDna, dna, false},
		{EntryTypeCapTokenGrant, dna, false},
		{EntryTypeAgentID, dna, true},
		{EntryTypeDeletion, dna, true},
		{EntryTypeLinkAdd, nil, true},
		{EntryTypeLinkRemove, dna, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.entryType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entryType.CanPublish(tt.dna))
		})
	}
}

func TestEntryWithHeaderJSON(t *testing.T) {
	ewh := EntryWithHeader{
		Entry:  AppEntry{Type: "post", Value: json.RawMessage(`"hello"`)},
		Header: ChainHeader{EntryType: "post", EntryAddress: "bafk"},
	}

	data, err := json.Marshal(ewh)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entry":{"entry_type":"post","content":"hello"}`)

	var decoded EntryWithHeader
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ewh.Entry, decoded.Entry)
	assert.Equal(t, ewh.Header.EntryAddress, decoded.Header.EntryAddress)
}
