// Command ftpkit is the CLI front end for the ftpkit library: it parses
// argv and environment into a ConnectionParameters, opens a pooled
// FileSystem, and drives the transfer Orchestrator's Upload/Download
// dispatch. The core library (the parent package) treats argument parsing
// and env/config loading as an external collaborator; this package is that
// collaborator.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/attenberger/ftpkit"
)

// exitConfig mirrors BSD sysexits' EX_CONFIG, used by the original
// source's os.EX_CONFIG for configuration/validation failures.
const exitConfig = 78

func main() {
	os.Exit(run())
}

func run() int {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted):
		return 0
	default:
		var cfgErr *ftpkit.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, err)
			return exitConfig
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}
