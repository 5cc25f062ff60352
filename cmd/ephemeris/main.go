// Package main provides the entry point for the ephemeris CLI.
package main

import (
	"os"

	"github.com/siderealab/ephemeris/cmd/ephemeris/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
