package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run consistency scenarios",
		Long: `Run YAML scenarios against a fresh in-memory instance each and check
the consistency signals every step emits.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreadable scenarios)

Examples:
  hcore test ./scenarios
  hcore test ./scenarios --filter "links*"
  hcore test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "scenarios directory", err)
	}
	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, path := range files {
		formatter.VerboseLog("Running %s", path)
		sr, err := runScenario(cmd, path)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, "run "+path, err)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var text strings.Builder
	if result.Total == 0 {
		text.WriteString("No scenarios found.")
	}
	for _, sr := range result.Scenarios {
		status := "PASS"
		if !sr.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&text, "%s %s\n", status, sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(&text, "  %s\n", e)
		}
	}
	if result.Total > 0 {
		fmt.Fprintf(&text, "\n%d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	}

	if err := formatter.Success(result, text.String()); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func runScenario(cmd *cobra.Command, path string) (ScenarioResult, error) {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioResult{}, err
	}
	r, err := harness.Run(cmd.Context(), s, harness.Options{})
	if err != nil {
		return ScenarioResult{Name: s.Name, Errors: []string{err.Error()}}, nil
	}
	return ScenarioResult{Name: s.Name, Pass: r.Pass, Errors: r.Errors}, nil
}

// findScenarioFiles finds YAML scenario files under dir whose base name
// matches filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
