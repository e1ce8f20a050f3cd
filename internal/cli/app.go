// Package cli wires the bookexchange subcommands onto urfave/cli.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// Runtime is what the commands need from the outside world. Tests swap
// OpenStore for an in-memory backend.
type Runtime struct {
	Version   string
	Config    func() *config.Config
	OpenStore func(ctx context.Context, cfg *config.Config) (storage.Manager, error)
	Serve     func(cfg *config.Config, version string)
}

// NewApp builds the command line application. Running it without a
// subcommand starts the HTTP server.
func NewApp(rt Runtime, out io.Writer) *cli.App {
	if out == nil {
		out = os.Stdout
	}

	serve := func(cCtx *cli.Context) error {
		rt.Serve(rt.Config(), rt.Version)
		return nil
	}

	return &cli.App{
		Name:    "bookexchange",
		Usage:   "Book exchange server and admin tools",
		Version: rt.Version,
		Writer:  out,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default if no command given)",
				Action: serve,
			},
			{
				Name:  "report",
				Usage: "Print exchange totals and the most exchanged books and most active users",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Size of the top lists",
						Value:   10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the report as JSON",
					},
				},
				Action: func(cCtx *cli.Context) error {
					cmd := &ReportCommand{
						Limit: cCtx.Int("limit"),
						JSON:  cCtx.Bool("json"),
					}
					return withStore(cCtx, rt, func(store storage.Manager) error {
						return cmd.Run(cCtx.Context, store, cCtx.App.Writer)
					})
				},
			},
			{
				Name:  "register",
				Usage: "Register a new user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Unique username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Unique email address", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", Required: true, EnvVars: []string{"BOOKEXCHANGE_PASSWORD"}},
					&cli.StringFlag{Name: "full-name", Usage: "Full name"},
					&cli.StringFlag{Name: "address", Usage: "Postal address for hand-overs"},
				},
				Action: func(cCtx *cli.Context) error {
					cmd := &RegisterCommand{
						Username: cCtx.String("username"),
						Email:    cCtx.String("email"),
						Password: cCtx.String("password"),
						FullName: cCtx.String("full-name"),
						Address:  cCtx.String("address"),
					}
					return withStore(cCtx, rt, func(store storage.Manager) error {
						return cmd.Run(cCtx.Context, store, cCtx.App.Writer)
					})
				},
			},
		},
	}
}

// withStore opens the configured backend for the duration of fn.
func withStore(cCtx *cli.Context, rt Runtime, fn func(storage.Manager) error) error {
	store, err := rt.OpenStore(cCtx.Context, rt.Config())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Disconnect(context.Background())

	return fn(store)
}
