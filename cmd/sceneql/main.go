// Package main is the entry point for the sceneql CLI.
package main

import (
	"os"

	"github.com/aidanlsb/sceneql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
