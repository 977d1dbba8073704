// Package main provides the ao command line for multi-service model projects.
package main

import (
	"os"

	"github.com/leapstack-labs/anops/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
