// Package main is the entry point for the fleetdw application
package main

import (
	"github.com/ethpandaops/fleetdw/cmd"
)

func main() {
	cmd.Execute()
}
