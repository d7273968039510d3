// Command finctl is a terminal client for the finance backend.
package main

import (
	"os"

	"finboard/cmd/finctl/internal/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
