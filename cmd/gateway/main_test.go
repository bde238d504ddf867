package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type GatewayCommandTestSuite struct {
	suite.Suite
	out *bytes.Buffer
}

func TestGatewayCommandSuite(t *testing.T) {
	suite.Run(t, new(GatewayCommandTestSuite))
}

func (suite *GatewayCommandTestSuite) SetupTest() {
	suite.out = new(bytes.Buffer)
}

func (suite *GatewayCommandTestSuite) run(args ...string) error {
	app := newApp()
	app.Writer = suite.out
	app.ErrWriter = new(bytes.Buffer)

	return app.Run(context.Background(), append([]string{"gateway"}, args...))
}

func (suite *GatewayCommandTestSuite) TestProviders() {
	suite.Require().NoError(suite.run("providers"))

	var infos []broker.ProviderInfo
	suite.Require().NoError(json.Unmarshal(suite.out.Bytes(), &infos))
	suite.Require().Len(infos, len(broker.GetSupportedProviders()))

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}

	suite.Contains(names, "ibgateway-paper")
	suite.Contains(names, "robinhood")
}

func (suite *GatewayCommandTestSuite) TestSchema() {
	suite.Require().NoError(suite.run("schema", "robinhood"))
	suite.Contains(suite.out.String(), "mfaCode")

	suite.out.Reset()
	suite.Require().NoError(suite.run("schema", "polygon"))
	suite.Contains(suite.out.String(), "apiKey")
}

func (suite *GatewayCommandTestSuite) TestSchemaErrors() {
	err := suite.run("schema")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	err = suite.run("schema", "etrade")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}

func (suite *GatewayCommandTestSuite) TestQuoteRequiresSymbol() {
	err := suite.run("quote")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *GatewayCommandTestSuite) TestMissingConfigFile() {
	missing := filepath.Join(suite.T().TempDir(), "gateway.yaml")

	err := suite.run("--config", missing, "positions")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *GatewayCommandTestSuite) TestLogEvent() {
	core, logs := observer.New(zap.DebugLevel)
	log := &logger.Logger{Logger: zap.New(core)}
	at := time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

	logEvent(log, events.NewConnected("ib", at))
	logEvent(log, events.NewDisconnected("ib", at, "connection reset", true))
	logEvent(log, events.NewOrderUpdate("ib", at, types.Order{ID: "7", Symbol: "AAPL", Status: types.OrderStatusFilled}))
	logEvent(log, events.NewError("ib", at, errors.ErrCodeRejected, "margin"))

	entries := logs.All()
	suite.Require().Len(entries, 4)
	suite.Equal("Broker connected", entries[0].Message)
	suite.Equal(zap.ErrorLevel, entries[1].Level)
	suite.Equal("7", entries[2].ContextMap()["order_id"])
	suite.Equal("ib", entries[3].ContextMap()["broker"])
	suite.Equal(int64(errors.ErrCodeRejected), entries[3].ContextMap()["code"])
}
