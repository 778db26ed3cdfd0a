package codec

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRow struct {
	EntryType string          `cbor:"entry_type"`
	Content   json.RawMessage `cbor:"content"`
	Seq       int64           `cbor:"seq"`
}

type sampleDual struct {
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRow{EntryType: "post", Content: json.RawMessage(`{"a":1}`), Seq: 42}

	data, err := Marshal(original)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var decoded sampleRow
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestMarshalDeterministic(t *testing.T) {
	m := map[string]any{"zeta": 1, "alpha": 2, "mid": []any{"x", true}}

	first, err := Marshal(m)
	require.NoError(t, err)
	for n := 0; n < 20; n++ {
		again, err := Marshal(m)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again), "map encoding must not depend on iteration order")
	}
}

func TestTimePreservesNanoseconds(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)

	data, err := Marshal(sampleDual{Name: "h", Created: ts})
	require.NoError(t, err)

	var decoded sampleDual
	require.NoError(t, Unmarshal(data, &decoded))
	assert.True(t, ts.Equal(decoded.Created), "got %v", decoded.Created)
	assert.Equal(t, "h", decoded.Name, "json tags are honored as a fallback")
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"k": map[string]any{"n": 1}})
	require.NoError(t, err)

	var decoded any
	require.NoError(t, Unmarshal(data, &decoded))
	outer, ok := decoded.(map[string]any)
	require.True(t, ok)
	_, ok = outer["k"].(map[string]any)
	assert.True(t, ok)
}

func TestStreamEncoding(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(sampleRow{EntryType: "a"}))
	require.NoError(t, enc.Encode(sampleRow{EntryType: "b"}))

	dec := NewDecoder(&buf)
	var first, second sampleRow
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "a", first.EntryType)
	assert.Equal(t, "b", second.EntryType)
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"a": 1})
	require.NoError(t, err)

	diag, err := Diagnose(data)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, diag)
}
