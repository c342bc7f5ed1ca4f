// Package main is the querysmith entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/querysmith/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
