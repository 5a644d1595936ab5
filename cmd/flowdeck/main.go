package main

import (
	"os"

	"github.com/chazuruo/flowdeck/internal/cli"
)

// Version is set at build time using ldflags
var Version = "dev"

// Commit is set at build time using ldflags
var Commit = "unknown"

// Date is set at build time using ldflags
var Date = "unknown"

// BuiltBy is set at build time using ldflags
var BuiltBy = "unknown"

func main() {
	rootCmd := cli.NewRootCommand(Version, Commit, Date, BuiltBy)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
