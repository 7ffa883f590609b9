package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var commands = []subcommands.Command{
	&txCmd{},
	&txAddCmd{},
	&txEditCmd{},
	&txRmCmd{},
	&accountsCmd{},
	&accountAddCmd{},
	&accountRmCmd{},
	&reportCmd{},
	&exportCmd{},
	&auditCmd{},
	&assistCmd{},
	&healthCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
