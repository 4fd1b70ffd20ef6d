package main

import (
	"os"

	"agentwire/cmd/agentwire/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
