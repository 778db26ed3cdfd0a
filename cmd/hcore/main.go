// Command hcore runs an agent's source chain.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hcore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
