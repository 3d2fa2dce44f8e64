// Package main is the entry point for the coinfund CLI.
package main

import (
	"os"

	"github.com/mrz1836/coinfund/internal/cli"
)

// Stamped by the linker at release time.
//
//nolint:gochecknoglobals // build metadata
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
