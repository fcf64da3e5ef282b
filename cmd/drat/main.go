package main

import (
	"os"

	"drat/cmd/drat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
