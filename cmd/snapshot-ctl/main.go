package main

import (
	"os"

	"redistrict/cmd/snapshot-ctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
