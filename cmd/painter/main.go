// Package main provides the entry point for the painter CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Kamar-Folarin/commit-painter/cmd/painter/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
