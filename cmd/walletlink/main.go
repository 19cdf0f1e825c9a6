// Package main is the entry point for the walletlink CLI.
package main

import (
	"os"

	"github.com/arcano/walletlink/internal/cli"
)

// Stamped by the release build with -ldflags "-X main.version=...".
//
//nolint:gochecknoglobals // ldflags targets must be package-level variables
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	if err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date}); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
