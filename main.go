package main

import (
	"os"

	"github.com/spigell/freelance-advisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
