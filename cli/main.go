package main

import (
	"os"

	"github.com/quoteline-systems/quoteline-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
