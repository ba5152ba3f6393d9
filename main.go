package main

import (
	"github.com/alecthomas/kong"

	"github.com/calewin/fieldhand/cmd/cli"
)

var commands struct {
	Run  cli.RunCmd  `cmd:"" help:"Execute a workflow against a batch of work items."`
	Lint cli.LintCmd `cmd:"" help:"Validate a workflow file and varfile without running it."`
}

func main() {
	ctx := kong.Parse(&commands,
		kong.Name("fieldhand"),
		kong.Description("Declarative browser workflow runner for structured data extraction."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
