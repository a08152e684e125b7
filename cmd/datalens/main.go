// Package main provides the CLI for the DataLens lineage engine.
package main

import (
	"os"

	"github.com/leapstack-labs/datalens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
