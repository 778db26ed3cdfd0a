package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs scenario and compares its aliased trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts Options) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares result's trace against the named golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	var b strings.Builder
	for _, line := range result.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(b.String()))
}
