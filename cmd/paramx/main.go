// Command paramx shapes request payloads with declarative per-field rules.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/paramx/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
