// Package main implements the zigbind binary.
package main

import (
	"os"

	"github.com/zigbind/zigbind/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
