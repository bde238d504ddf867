package main

import (
	"context"

	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/urfave/cli/v3"
)

func positionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "positions",
		Usage: "Print the open positions of every connected broker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "broker",
				Usage: "Only ask this broker",
			},
		},
		Action: positionsAction,
	}
}

type positionsOutput struct {
	Positions []types.Position `json:"positions"`
	Errors    []brokerFailure  `json:"errors,omitempty"`
}

func positionsAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.connect(ctx); err != nil {
		return err
	}

	if brokerID := cmd.String("broker"); brokerID != "" {
		positions, err := s.router.GetPositions(ctx, brokerID)
		if err != nil {
			return err
		}

		return printJSON(cmd.Root().Writer, positionsOutput{Positions: positions})
	}

	result := s.router.GetAllPositions(ctx)

	return printJSON(cmd.Root().Writer, positionsOutput{
		Positions: result.Items,
		Errors:    toFailures(result.Errors),
	})
}
