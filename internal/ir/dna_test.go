package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDnaGetZome(t *testing.T) {
	dna := testDna()

	z, err := dna.GetZome("test_zome")
	require.NoError(t, err)
	assert.Len(t, z.Functions, 2)

	_, err = dna.GetZome("missing")
	require.ErrorIs(t, err, ErrZomeNotFound)
}

func TestDnaGetFunction(t *testing.T) {
	dna := testDna()

	fn, err := dna.GetFunction("test_zome", "test")
	require.NoError(t, err)
	assert.Equal(t, "test", fn.Name)

	_, err = dna.GetFunction("test_zome", "missing")
	require.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = dna.GetFunction("missing", "test")
	require.ErrorIs(t, err, ErrZomeNotFound)
}

func TestDnaEntryTypeDef(t *testing.T) {
	dna := testDna()

	def, ok := dna.EntryTypeDef("secret")
	require.True(t, ok)
	assert.Equal(t, SharingPrivate, def.Sharing)

	_, ok = dna.EntryTypeDef("nope")
	assert.False(t, ok)
}

func TestDnaAddressStable(t *testing.T) {
	a1, err := testDna().Address()
	require.NoError(t, err)
	a2, err := testDna().Address()
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	changed := testDna()
	changed.Version = "2"
	a3, err := changed.Address()
	require.NoError(t, err)
	assert.NotEqual(t, a1, a3)
}
