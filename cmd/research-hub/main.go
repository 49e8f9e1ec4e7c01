package main

import (
	"os"

	"github.com/dgellow/research-hub/internal/cli"
)

func main() {
	cli.Init()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
