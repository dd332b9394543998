package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/ryley-o/OpenCryptoTax/cli"
)

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was built
	// against. It's set via ldflags when building.
	CommitSHA = ""

	app struct {
		Version kong.VersionFlag `help:"Show version information"`
		cli.Commands
	}
)

func main() {
	ctx := kong.Parse(&app,
		kong.Vars{
			"version": buildVersion(),
		},
		kong.Name("opencryptotax"),
		kong.Description("FIFO cost basis and capital gains for crypto asset ledgers."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if Version == "" {
		Version = "dev"
	}
	if CommitSHA == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, CommitSHA)
}
