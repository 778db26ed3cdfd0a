package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/crud.yaml")
	require.NoError(t, err)

	assert.Equal(t, "crud", s.Name)
	assert.Equal(t, filepath.Join("testdata", "dna"), s.Dna, "dna resolved against the scenario file")
	require.Len(t, s.Steps, 8)

	second := s.Steps[1].Commit
	require.NotNil(t, second)
	assert.Equal(t, "note2", second.As)
	assert.Equal(t, "note1", second.CrudLink)
	assert.Nil(t, s.Steps[1].Expect, "absent expect is not checked")

	deletion := s.Steps[5].Commit
	require.NotNil(t, deletion)
	assert.Equal(t, "%deletion", deletion.Type)
	assert.Equal(t, "note2", deletion.Deletes)

	assert.Equal(t, &CrudStep{Old: "note2", New: "del1"}, s.Steps[7].RemoveEntry)
	assert.Equal(t, []string{"RemoveEntry"}, s.Steps[7].Expect)
}

func TestLoadScenarioEmptyExpect(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/publish_hold.yaml")
	require.NoError(t, err)

	require.NotNil(t, s.Steps[0].Expect)
	assert.Empty(t, s.Steps[0].Expect)
}

func TestLoadScenarioCall(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/calls_and_validation.yaml")
	require.NoError(t, err)

	call := s.Steps[1].Call
	require.NotNil(t, call)
	assert.Equal(t, "stranger", call.Signer)
	assert.Equal(t, "CAPABILITY_CHECK_FAILED", call.Error)
	assert.Equal(t, map[string]any{"content": "hi"}, s.Steps[0].Call.Params)
}

func TestLoadScenarioRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\ndna: x\nsteps:\n  - publish: a\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\ndna: x\nsteps:\n  - publish: a\n",
			want:    "description is required",
		},
		{
			name:    "missing dna",
			content: "name: n\ndescription: d\nsteps:\n  - publish: a\n",
			want:    "dna is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\ndna: x\nsteps: []\n",
			want:    "steps list is required",
		},
		{
			name:    "two actions in one step",
			content: "name: n\ndescription: d\ndna: x\nsteps:\n  - publish: a\n    hold: a\n",
			want:    "step 0: must name exactly one action, found 2",
		},
		{
			name:    "step without action",
			content: "name: n\ndescription: d\ndna: x\nsteps:\n  - expect: []\n",
			want:    "found 0",
		},
		{
			name:    "commit without alias",
			content: "name: n\ndescription: d\ndna: x\nsteps:\n  - commit: {type: note}\n",
			want:    "commit needs an alias",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\ndna: x\nsteps:\n  - publish: a\nassertions:\n  - type: vibes\n",
			want:    `unknown type "vibes"`,
		},
		{
			name:    "unknown field",
			content: "name: n\ndescription: d\ndna: x\nflow_token: t\nsteps:\n  - publish: a\n",
			want:    "field flow_token not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
