// Package main provides the entry point for the nexus CLI.
package main

import (
	"os"

	"github.com/nexus-search/nexus/cmd/nexus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
