package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/langdocs/cmd/langdocs/commands"
	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("langdocs"),
		kong.Description("Build multilingual documentation into JSON artifacts and a language support matrix."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: cli.Logger(), Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		lderrors.NewCLIErrorAdapter(cli.Verbose, cli.Logger()).HandleError(err)
	}
}
