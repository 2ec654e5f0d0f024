package main

import (
	"os"

	"github.com/swaptoon/swap-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
