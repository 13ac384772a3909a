// Command seedling loads named fixture scripts into a fixture registry.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/seedling/internal/cli"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
