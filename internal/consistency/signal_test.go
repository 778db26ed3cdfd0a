package consistency

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hcore/internal/ir"
)

func TestEventJSON(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Publish("baddr"), `{"Publish":"baddr"}`},
		{UpdateEntry("bold", "bnew"), `{"UpdateEntry":["bold","bnew"]}`},
		{RemoveEntry("bold", "bdel"), `{"RemoveEntry":["bold","bdel"]}`},
		{SignalZomeFunctionCall("c1"), `{"SignalZomeFunctionCall":"c1"}`},
		{ReturnZomeFunctionResult("c1"), `{"ReturnZomeFunctionResult":"c1"}`},
		{AddLink(ir.LinkData{Base: "b", Target: "t", LinkType: "l", Tag: "g"}),
			`{"AddLink":{"base":"b","target":"t","link_type":"l","tag":"g"}}`},
		{RemoveLink(ir.DeletionEntry{Deleted: "bx"}),
			`{"RemoveLink":{"entry_type":"%deletion","content":{"deleted":"bx"}}}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Kind), func(t *testing.T) {
			assert.JSONEq(t, tt.want, tt.event.String())
		})
	}
}

func TestEventJSONUnknownKind(t *testing.T) {
	_, err := Event{Kind: "Bogus"}.MarshalJSON()
	assert.Error(t, err)
}

func TestExportEncodesEachEvent(t *testing.T) {
	sig := NewPending(Publish("baddr"), Validators, Hold("baddr"))

	out, err := Export(sig)

	require.NoError(t, err)
	assert.Equal(t, `{"Publish":"baddr"}`, out.Event)
	require.Len(t, out.Pending, 1)
	assert.Equal(t, Pending[string]{Event: `{"Hold":"baddr"}`, Group: Validators}, out.Pending[0])
}

func TestExportTerminalHasEmptyPending(t *testing.T) {
	out, err := Export(NewTerminal(Hold("baddr")))

	require.NoError(t, err)
	assert.NotNil(t, out.Pending)
	assert.Empty(t, out.Pending)
}

func TestJSONLinesSinkGolden(t *testing.T) {
	link := ir.LinkData{Base: "bafybase", Target: "bafytarget", LinkType: "likes", Tag: "t"}
	signals := []Signal[Event]{
		NewPending(Publish("bafyentry"), Validators, Hold("bafyentry"), UpdateEntry("bafyold", "bafyentry")),
		NewPending(SignalZomeFunctionCall("call-1"), Source, ReturnZomeFunctionResult("call-1")),
		NewTerminal(AddLink(link)),
		NewTerminal(RemoveLink(ir.LinkRemoveEntry{Link: link, Removed: []ir.Address{"bafyadd"}})),
	}

	var buf bytes.Buffer
	sink := NewJSONLinesSink(&buf)
	for _, sig := range signals {
		out, err := Export(sig)
		require.NoError(t, err)
		require.NoError(t, sink.Emit(out))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "signals", buf.Bytes())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	out, err := Export(NewTerminal(Hold("b")))
	require.NoError(t, err)

	require.NoError(t, r.Emit(out))
	got := r.Signals()
	got[0].Event = "mutated"

	assert.Equal(t, `{"Hold":"b"}`, r.Signals()[0].Event)
}
