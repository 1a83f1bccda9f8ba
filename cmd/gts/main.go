// Package main implements the go-testsight CLI (gts).
// It resolves changed files into the tests they impact and optionally
// runs them.
package main

import (
	"os"

	"github.com/l3aro/go-testsight/cmd/gts/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`gts version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
