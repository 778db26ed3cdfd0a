package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapTokenGrantAssigneeShape(t *testing.T) {
	fns := CapFunctions{"test_zome": {"test"}}

	tests := []struct {
		name      string
		typ       CapabilityType
		assignees []Address
		wantErr   bool
	}{
		{"public without assignees", CapPublic, nil, false},
		{"public with assignees", CapPublic, []Address{"a"}, true},
		{"transferable without assignees", CapTransferable, nil, false},
		{"transferable with assignees", CapTransferable, []Address{"a"}, true},
		{"assigned with assignees", CapAssigned, []Address{"a"}, false},
		{"assigned without assignees", CapAssigned, nil, true},
		{"unknown type", CapabilityType("root"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCapTokenGrant("g1", tt.typ, tt.assignees, fns)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidGrant)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCapTokenGrantToken(t *testing.T) {
	g1, err := NewCapTokenGrant("g1", CapPublic, nil, CapFunctions{"z": {"f"}})
	require.NoError(t, err)
	g2, err := NewCapTokenGrant("g2", CapPublic, nil, CapFunctions{"z": {"f"}})
	require.NoError(t, err)

	tok1, err := g1.Token()
	require.NoError(t, err)
	entryAddr, err := AddressOf(CapTokenGrantEntry{Grant: g1})
	require.NoError(t, err)
	tok2, err := g2.Token()
	require.NoError(t, err)

	assert.Equal(t, entryAddr, tok1, "token is the grant entry's address")
	assert.NotEqual(t, tok1, tok2, "grants with different ids have different tokens")
}

func TestCapFunctionsAllows(t *testing.T) {
	fns := CapFunctions{"z": {"f", "g"}}

	assert.True(t, fns.Allows("z", "f"))
	assert.True(t, fns.Allows("z", "g"))
	assert.False(t, fns.Allows("z", "h"))
	assert.False(t, fns.Allows("other", "f"))
}

func TestIsAssignee(t *testing.T) {
	g, err := NewCapTokenGrant("g", CapAssigned, []Address{"alice"}, nil)
	require.NoError(t, err)

	assert.True(t, g.IsAssignee("alice"))
	assert.False(t, g.IsAssignee("bob"))
	assert.NotNil(t, g.Functions)
}
