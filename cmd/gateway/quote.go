package main

import (
	"context"

	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/urfave/cli/v3"
)

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "quote",
		Usage:     "Print the current quote for each symbol",
		ArgsUsage: "SYMBOL...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "broker",
				Usage: "Broker id to ask; defaults to the routing policy's choice",
			},
		},
		Action: quoteAction,
	}
}

type quoteResult struct {
	Symbol string       `json:"symbol"`
	Quote  *types.Quote `json:"quote,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func quoteAction(ctx context.Context, cmd *cli.Command) error {
	symbols := cmd.Args().Slice()
	if len(symbols) == 0 {
		return errors.New(errors.ErrCodeMissingParameter, "at least one symbol is required")
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.connect(ctx); err != nil {
		s.logger.Warn("Falling back to market data source only")
	}

	brokerID := cmd.String("broker")
	results := make([]quoteResult, 0, len(symbols))

	for _, symbol := range symbols {
		quote, err := s.router.GetQuote(ctx, brokerID, symbol)
		if err != nil {
			results = append(results, quoteResult{Symbol: symbol, Error: err.Error()})

			continue
		}

		results = append(results, quoteResult{Symbol: symbol, Quote: &quote})
	}

	return printJSON(cmd.Root().Writer, results)
}
