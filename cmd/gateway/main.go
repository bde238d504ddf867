package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-gateway/internal/version"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "gateway",
		Usage:   "Route trading calls to several brokers behind one API",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the gateway configuration `FILE`",
				Value:   "gateway.yaml",
				Sources: cli.EnvVars("GATEWAY_CONFIG"),
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Env `FILE` loaded before the configuration is read; may be repeated",
				Value: []string{".env"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			quoteCommand(),
			positionsCommand(),
			providersCommand(),
			schemaCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
