// Package main is the entry point for the fleetctl admin tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/fleetwatch/cmd/fleetctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
