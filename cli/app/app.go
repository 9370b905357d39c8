package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/assetstate/cli/db"
	"github.com/nspcc-dev/assetstate/cli/registry"
	"github.com/nspcc-dev/assetstate/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "assetstate\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an assetstate instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "assetstate"
	ctl.Version = config.Version
	ctl.Usage = "Data asset registry state tool"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, registry.NewCommands()...)
	ctl.Commands = append(ctl.Commands, db.NewCommands()...)
	return ctl
}
