package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hcore/internal/keystore"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	List bool
}

// KeyInfo describes one stored key.
type KeyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen [name]",
		Short: "Create an agent signing key",
		Long: `Create an ed25519 agent key in the configured keystore directory.

The name defaults to agent.name from the configuration. The printed address
is the agent id the key signs as.

Example:
  hcore keygen alice
  hcore keygen --list`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored keys instead of creating one")

	return cmd
}

func runKeygen(opts *KeygenOptions, args []string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ks := keystore.NewStore(e.cfg.Agent.Keystore)

	if opts.List {
		names, err := ks.List()
		if err != nil {
			return e.formatter.fail(ExitCommandError, ErrCodeKeystore, "list keys", err)
		}
		keys := make([]KeyInfo, 0, len(names))
		var text strings.Builder
		for _, name := range names {
			kp, err := ks.Load(name)
			if err != nil {
				return e.formatter.fail(ExitCommandError, ErrCodeKeystore, "load key", err)
			}
			keys = append(keys, KeyInfo{Name: name, Address: string(kp.Address())})
			fmt.Fprintf(&text, "%s\t%s\n", name, kp.Address())
		}
		return e.formatter.Success(keys, strings.TrimSuffix(text.String(), "\n"))
	}

	name := e.cfg.Agent.Name
	if len(args) == 1 {
		name = args[0]
	}
	kp, err := ks.Create(name)
	if err != nil {
		return e.formatter.fail(ExitCommandError, ErrCodeKeystore, "create key", err)
	}
	e.formatter.VerboseLog("key written to %s", e.cfg.Agent.Keystore)

	info := KeyInfo{Name: name, Address: string(kp.Address())}
	return e.formatter.Success(info, fmt.Sprintf("%s\t%s", info.Name, info.Address))
}
