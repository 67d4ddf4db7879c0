// Package main is the entry point for the sitetree CLI.
package main

import (
	"os"

	"github.com/jmylchreest/sitetree/cmd/sitetree/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
