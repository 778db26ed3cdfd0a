package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hcore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "hcore",
		Version: fmt.Sprintf("%s (data model v%s)", ir.CoreVersion, ir.IRVersion),
		Short:   "hcore - agent-centric source chain runtime",
		Long: `Run an agent's source chain: commit entries, make capability-checked
zome calls and stream the consistency signals they produce.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "hcore.yaml", "path to instance configuration")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewDnaCommand(opts))
	cmd.AddCommand(NewChainCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
