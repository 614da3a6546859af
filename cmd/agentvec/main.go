// Package main is the entry point for the agentvec CLI.
package main

import (
	"os"

	"github.com/viant/agentvec/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
