package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/retry"
)

// CodesCmd implements the 'codes' command.
type CodesCmd struct{}

func (c *CodesCmd) Run(g *Global, _ *CLI) error {
	return PrintCodes(g.out())
}

// PrintCodes writes the taxonomy as an aligned table.
func PrintCodes(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CODE\tSEVERITY\tRETRY\tMESSAGE")
	for _, code := range apierror.Codes() {
		e := apierror.Lookup(code)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Code, e.Severity, retry.StrategyFor(code), e.Message)
	}
	return tw.Flush()
}
