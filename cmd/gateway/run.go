package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect every configured broker and log their events until interrupted",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "quotes",
				Usage: "Symbols to stream quotes for",
			},
			&cli.StringSliceFlag{
				Name:  "bars",
				Usage: "Symbols to stream bars for",
			},
			&cli.StringFlag{
				Name:  "timeframe",
				Usage: "Bar timeframe for --bars",
				Value: string(types.Timeframe1m),
			},
			&cli.StringFlag{
				Name:  "broker",
				Usage: "Broker id to stream from; defaults to the routing policy's choice",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.close()

	s.logger.Info("Starting gateway",
		zap.String("version", version.GetVersion()),
		zap.String("config", s.config.Summary()),
	)

	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	if err := s.connect(ctx); err != nil {
		return err
	}

	brokerID := cmd.String("broker")

	if symbols := cmd.StringSlice("quotes"); len(symbols) > 0 {
		if err := s.router.SubscribeQuotes(ctx, brokerID, symbols); err != nil {
			s.logger.Warn("Quote subscription failed", zap.Strings("symbols", symbols), zap.Error(err))
		}
	}

	if symbols := cmd.StringSlice("bars"); len(symbols) > 0 {
		timeframe := types.Timeframe(cmd.String("timeframe"))
		if err := s.router.SubscribeBars(ctx, brokerID, symbols, timeframe); err != nil {
			s.logger.Warn("Bar subscription failed", zap.Strings("symbols", symbols), zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down gateway")

			return nil
		case evt, ok := <-sub:
			if !ok {
				return nil
			}

			logEvent(s.logger, evt)
		}
	}
}

func logEvent(log *logger.Logger, evt events.Event) {
	log = log.With(zap.String("broker", evt.Source()))

	switch e := evt.(type) {
	case events.Connected:
		log.Info("Broker connected")
	case events.Disconnected:
		if e.Terminal {
			log.Error("Broker disconnected", zap.String("reason", e.Reason), zap.Bool("terminal", true))
		} else {
			log.Warn("Broker disconnected", zap.String("reason", e.Reason), zap.Bool("terminal", false))
		}
	case events.OrderUpdate:
		log.Info("Order update",
			zap.String("order_id", e.Order.ID),
			zap.String("symbol", e.Order.Symbol),
			zap.String("status", string(e.Order.Status)),
			zap.Float64("filled", e.Order.FilledQuantity),
		)
	case events.QuoteUpdate:
		log.Debug("Quote",
			zap.String("symbol", e.Quote.Symbol),
			zap.Float64("bid", e.Quote.Bid),
			zap.Float64("ask", e.Quote.Ask),
			zap.Float64("last", e.Quote.Last),
		)
	case events.BarUpdate:
		log.Debug("Bar",
			zap.String("symbol", e.Bar.Symbol),
			zap.String("timeframe", string(e.Bar.Timeframe)),
			zap.Float64("close", e.Bar.Close),
		)
	case events.Error:
		log.Warn("Broker error", zap.Int("code", int(e.Code)), zap.String("detail", e.Detail))
	}
}
