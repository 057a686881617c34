// Package main is the leapseries command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapseries/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
