package main

import (
	"os"

	"github.com/spherical/pdf-compressor/cmd/pdf-compressor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
