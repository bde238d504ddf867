package gateway_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/config"
	"github.com/rxtech-lab/argo-gateway/internal/events"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/router"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/stretchr/testify/suite"
)

const testnetConfig = `
brokers:
  - id: testnet
    provider: binance-paper
    config:
      api_key: ${BINANCE_TESTNET_API_KEY}
      secret_key: ${BINANCE_TESTNET_SECRET_KEY}
`

// TestnetTestSuite runs read-only calls against the Binance spot testnet.
// It requires BINANCE_TESTNET_API_KEY and BINANCE_TESTNET_SECRET_KEY.
type TestnetTestSuite struct {
	suite.Suite
	bus    *events.Bus
	router *router.Router
}

func TestTestnetSuite(t *testing.T) {
	suite.Run(t, new(TestnetTestSuite))
}

func (suite *TestnetTestSuite) SetupSuite() {
	if os.Getenv("BINANCE_TESTNET_API_KEY") == "" || os.Getenv("BINANCE_TESTNET_SECRET_KEY") == "" {
		suite.T().Skip("Skipping testnet tests: BINANCE_TESTNET_API_KEY and BINANCE_TESTNET_SECRET_KEY not set")
	}

	cfg, err := config.Parse([]byte(testnetConfig))
	suite.Require().NoError(err)

	suite.bus = events.NewBus(logger.NewNopLogger())

	suite.router, err = config.NewRouter(cfg, broker.Deps{Bus: suite.bus, Logger: logger.NewNopLogger()})
	suite.Require().NoError(err)
	suite.Require().Empty(suite.router.ConnectAll(suite.ctx()))
}

func (suite *TestnetTestSuite) TearDownSuite() {
	if suite.router != nil {
		_ = suite.router.Close(context.Background())
		suite.bus.Close()
	}
}

func (suite *TestnetTestSuite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	suite.T().Cleanup(cancel)

	return ctx
}

func (suite *TestnetTestSuite) TestAccount() {
	account, err := suite.router.GetAccount(suite.ctx(), "")
	suite.Require().NoError(err)
	suite.GreaterOrEqual(account.Balance, float64(0))
	suite.GreaterOrEqual(account.BuyingPower, float64(0))
}

func (suite *TestnetTestSuite) TestPositions() {
	positions, err := suite.router.GetPositions(suite.ctx(), "")
	suite.Require().NoError(err)
	suite.NotNil(positions)
}

func (suite *TestnetTestSuite) TestQuote() {
	quote, err := suite.router.GetQuote(suite.ctx(), "", "BTCUSDT")
	suite.Require().NoError(err)
	suite.Greater(quote.Ask, quote.Bid)
}

func (suite *TestnetTestSuite) TestBars() {
	end := time.Now().Truncate(time.Minute)

	bars, err := suite.router.GetBars(suite.ctx(), "", "BTCUSDT", types.Timeframe1m, end.Add(-time.Hour), end)
	suite.Require().NoError(err)
	suite.NotEmpty(bars)

	for _, bar := range bars {
		suite.GreaterOrEqual(bar.High, bar.Low)
	}
}

func (suite *TestnetTestSuite) TestOpenOrdersAndTrades() {
	orders := suite.router.GetAllOrders(suite.ctx(), types.OrderFilter{})
	suite.True(orders.OK())

	trades := suite.router.GetAllTrades(suite.ctx(), types.TradeFilter{Symbol: "BTCUSDT", Limit: 10})
	suite.True(trades.OK())
}
