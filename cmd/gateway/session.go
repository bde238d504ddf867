package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/config"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/router"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// session is a loaded configuration with its brokers registered.
type session struct {
	config *config.Config
	logger *logger.Logger
	bus    *events.Bus
	router *router.Router
}

// openSession loads the configuration named by the global flags. One-shot
// commands log to stderr so stdout carries only their JSON result.
func openSession(cmd *cli.Command, oneShot bool) (*session, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.StringSlice("env-file")...)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if override := cmd.String("log-level"); override != "" {
		level = override
	}

	var log *logger.Logger
	if oneShot {
		if level == "" {
			level = "warn"
		}

		log, err = logger.NewStderrLogger(level)
	} else {
		log, err = logger.NewLoggerWithLevel(level)
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
	}

	bus := events.NewBus(log)

	r, err := config.NewRouter(cfg, broker.Deps{Bus: bus, Logger: log})
	if err != nil {
		bus.Close()

		return nil, err
	}

	return &session{config: cfg, logger: log, bus: bus, router: r}, nil
}

// connect connects every broker and fails only when none could connect.
func (s *session) connect(ctx context.Context) error {
	failures := s.router.ConnectAll(ctx)
	for _, failure := range failures {
		s.logger.Warn("Broker unavailable", zap.String("broker", failure.BrokerID), zap.Error(failure.Err))
	}

	if len(failures) > 0 && len(failures) == len(s.router.Brokers()) {
		return errors.New(errors.ErrCodeNotConnected, "no broker could connect")
	}

	return nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.router.Close(ctx); err != nil {
		s.logger.Warn("Broker disconnect failed", zap.Error(err))
	}

	s.bus.Close()
	_ = s.logger.Sync()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to encode output", err)
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// brokerFailure is the JSON form of a router.BrokerError.
type brokerFailure struct {
	BrokerID string           `json:"broker_id"`
	Code     errors.ErrorCode `json:"code"`
	Error    string           `json:"error"`
}

func toFailures(errs []router.BrokerError) []brokerFailure {
	result := make([]brokerFailure, 0, len(errs))
	for _, e := range errs {
		result = append(result, brokerFailure{BrokerID: e.BrokerID, Code: errors.GetCode(e.Err), Error: e.Err.Error()})
	}

	return result
}
