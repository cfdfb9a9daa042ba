package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/apierror/cmd/apierror/commands"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("apierror"),
		kong.Description("Classify, track and report API failures"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{
		Logger: slog.Default(),
		Out:    os.Stdout,
		In:     os.Stdin,
	}
	if err := parser.Run(global, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
