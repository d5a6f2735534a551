// Package main is the entry point for collabctl CLI
package main

import (
	"os"

	"github.com/ong-collab/collabctl/cmd"
)

// version, commit and buildTime are set at build time via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cmd.SetVersion(version)
	cmd.SetBuildInfo(commit, buildTime)
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.HandleError(err))
	}
}
