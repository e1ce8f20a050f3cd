package main

import (
	"log"
	"os"

	"github.com/mrlokans/bookexchange/internal/cli"
	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	app := cli.NewApp(cli.Runtime{
		Version:   Version + " (" + Commit + ")",
		Config:    config.NewConfig,
		OpenStore: entrypoint.OpenStore,
		Serve:     entrypoint.Run,
	}, os.Stdout)

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
