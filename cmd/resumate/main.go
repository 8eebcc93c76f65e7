package main

import (
	"os"

	"github.com/resumate-app/resumate/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
