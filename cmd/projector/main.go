// Command projector runs dividend income projections from a CSV portfolio file.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&simulateCmd{}, "projection")
	commander.Register(&reportCmd{}, "projection")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
