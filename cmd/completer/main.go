// Command completer drives the completion engine from a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "completer",
		Usage: "Editor completion engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to .completer.yaml (default: search upwards from the working directory)",
				Sources: cli.EnvVars("COMPLETER_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("COMPLETER_DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "stale-guard",
				Usage:   "drop replies that arrive after their session ended",
				Sources: cli.EnvVars("COMPLETER_STALE_GUARD"),
			},
		},
		Commands: []*cli.Command{
			completeCommand(),
			replCommand(),
			tuiCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
				return runTUI(ctx, cmd)
			}
			return runREPL(ctx, cmd)
		},
	}
}
