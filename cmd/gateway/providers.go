package main

import (
	"context"

	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/broker/provider"
	"github.com/rxtech-lab/argo-gateway/internal/marketdata"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/urfave/cli/v3"
)

func providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List the supported broker providers",
		Action: func(_ context.Context, cmd *cli.Command) error {
			infos := make([]broker.ProviderInfo, 0)

			for _, name := range broker.GetSupportedProviders() {
				info, err := broker.GetProviderInfo(name)
				if err != nil {
					return err
				}

				infos = append(infos, info)
			}

			return printJSON(cmd.Root().Writer, infos)
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Print the JSON schema of a provider's configuration",
		ArgsUsage: "PROVIDER",
		Action: func(_ context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New(errors.ErrCodeMissingParameter, "provider name is required")
			}

			var (
				schema string
				err    error
			)

			if marketdata.ProviderType(name) == marketdata.ProviderPolygon {
				schema, err = provider.ToJSONSchema(marketdata.Config{})
			} else {
				schema, err = provider.GetProviderConfigSchema(name)
			}

			if err != nil {
				return err
			}

			_, err = cmd.Root().Writer.Write([]byte(schema + "\n"))

			return err
		},
	}
}
