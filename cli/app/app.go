/*
Package app assembles the fundme command line application.
*/
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/neo-fundme/fundme/cli/fundme"
	"github.com/neo-fundme/fundme/pkg/config"
	"github.com/urfave/cli/v2"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "FundMe\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a FundMe instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "fundme"
	ctl.Version = config.Version
	ctl.Usage = "Crowdfunding contract client for Neo N3"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, fundme.NewCommands()...)
	return ctl
}
