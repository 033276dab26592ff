package main

import (
	"fmt"
	"os"

	"github.com/marmos91/bijoufs/cmd/bijou/commands"

	// Import the Prometheus metrics implementation to register its init().
	_ "github.com/marmos91/bijoufs/pkg/metrics/prometheus"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
