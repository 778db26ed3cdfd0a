package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/dna"
)

// DnaSummary is the result of a successful dna validate.
type DnaSummary struct {
	Name      string   `json:"name"`
	Version   string   `json:"version,omitempty"`
	Address   string   `json:"address"`
	Zomes     []string `json:"zomes"`
	FileCount int      `json:"file_count"`
}

// NewDnaCommand creates the dna command group.
func NewDnaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dna",
		Short: "Work with DNA definitions",
	}
	cmd.AddCommand(newDnaValidateCommand(rootOpts))
	return cmd
}

func newDnaValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dna-dir>",
		Short: "Compile and validate a CUE DNA definition",
		Long: `Compile the CUE files in a directory into a DNA and check it.

Prints the DNA's content address on success. That address is what a chain
created with this DNA records in its genesis entry.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDnaValidate(rootOpts, args[0], cmd)
		},
	}
}

func runDnaValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := dna.FindCUEFiles(dir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDnaLoad, "scan dna directory", err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), dir)

	d, err := dna.LoadDir(dir)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeDnaLoad, "compile dna", err)
	}
	if errs := dna.Validate(d); len(errs) > 0 {
		_ = formatter.Error(ErrCodeDnaInvalid, fmt.Sprintf("dna %s has %d error(s)", d.Name, len(errs)), errs)
		if formatter.Format != "json" {
			for _, e := range errs {
				fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
			}
		}
		return NewExitError(ExitFailure, "dna validation failed")
	}

	addr, err := d.Address()
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeDnaInvalid, "address dna", err)
	}
	summary := DnaSummary{
		Name:      d.Name,
		Version:   d.Version,
		Address:   string(addr),
		FileCount: len(files),
	}
	for name := range d.Zomes {
		summary.Zomes = append(summary.Zomes, name)
	}
	slices.Sort(summary.Zomes)

	return formatter.Success(summary, fmt.Sprintf("dna %s valid (%d zome(s))\naddress: %s", d.Name, len(summary.Zomes), addr))
}
