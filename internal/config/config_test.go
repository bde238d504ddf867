package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/marketdata"
	"github.com/rxtech-lab/argo-gateway/internal/router"
	"github.com/rxtech-lab/argo-gateway/internal/version"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const gatewayYAML = `
log_level: debug
router:
  policy: round_robin
  default_broker: ib
market_data:
  provider: polygon
  api_key: ${TEST_POLYGON_KEY}
brokers:
  - id: ib
    provider: ibgateway-paper
    config:
      host: 127.0.0.1
      port: 4002
      client_id: 3
      request_timeout: 5s
  - id: crypto
    provider: binance-paper
    config:
      api_key: ${TEST_BINANCE_KEY}
      secret_key: secret
  - id: spare
    provider: alpaca-paper
    disabled: true
    config:
      api_key: k
      api_secret: s
`

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.T().Setenv("TEST_POLYGON_KEY", "pk")
	suite.T().Setenv("TEST_BINANCE_KEY", "bk")
}

func (suite *ConfigTestSuite) TestParse() {
	config, err := Parse([]byte(gatewayYAML))
	suite.Require().NoError(err)

	suite.Equal("debug", config.LogLevel)
	suite.Equal(router.PolicyRoundRobin, config.Router.Policy)
	suite.Equal("ib", config.Router.DefaultBroker)
	suite.Require().NotNil(config.MarketData)
	suite.Equal(marketdata.ProviderPolygon, config.MarketData.Provider)
	suite.Equal("pk", config.MarketData.APIKey)

	suite.Require().Len(config.Brokers, 3)
	suite.Equal("ibgateway-paper", config.Brokers[0].Provider)
	suite.True(config.Brokers[2].Disabled)

	enabled := config.EnabledBrokers()
	suite.Require().Len(enabled, 2)
	suite.Equal("ib", enabled[0].ID)
	suite.Equal("crypto", enabled[1].ID)

	summary := config.Summary()
	suite.Contains(summary, "broker=ib(ibgateway-paper)")
	suite.NotContains(summary, "secret")
}

func (suite *ConfigTestSuite) TestParseErrors() {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no brokers",
			yaml: "log_level: info\n",
		},
		{
			name: "unknown field",
			yaml: "brokers:\n  - id: a\n    provider: robinhood\n    colour: red\n",
		},
		{
			name: "duplicate id",
			yaml: "brokers:\n  - id: a\n    provider: robinhood\n  - id: a\n    provider: alpaca-paper\n",
		},
		{
			name: "unknown provider",
			yaml: "brokers:\n  - id: a\n    provider: etrade\n",
		},
		{
			name: "missing default broker",
			yaml: "router:\n  default_broker: b\nbrokers:\n  - id: a\n    provider: robinhood\n",
		},
		{
			name: "bad policy",
			yaml: "router:\n  policy: random\nbrokers:\n  - id: a\n    provider: robinhood\n",
		},
		{
			name: "bad log level",
			yaml: "log_level: loud\nbrokers:\n  - id: a\n    provider: robinhood\n",
		},
		{
			name: "market data without key",
			yaml: "market_data:\n  provider: polygon\nbrokers:\n  - id: a\n    provider: robinhood\n",
		},
		{
			name: "empty",
			yaml: "",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := Parse([]byte(tc.yaml))
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration), "got %v", err)
		})
	}
}

func (suite *ConfigTestSuite) TestVersionCompatibility() {
	previous := version.Version
	version.Version = "1.2.0"

	defer func() { version.Version = previous }()

	_, err := Parse([]byte("version: 1.1.0\nbrokers:\n  - id: a\n    provider: robinhood\n"))
	suite.NoError(err)

	_, err = Parse([]byte("version: 1.3.0\nbrokers:\n  - id: a\n    provider: robinhood\n"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadWithEnvFile() {
	dir := suite.T().TempDir()
	envFile := filepath.Join(dir, "gateway.env")
	configFile := filepath.Join(dir, "gateway.yaml")

	suite.T().Setenv("TEST_RH_USER", "")
	suite.Require().NoError(os.Unsetenv("TEST_RH_USER"))
	suite.Require().NoError(os.WriteFile(envFile, []byte("TEST_RH_USER=ada\n"), 0o600))
	suite.Require().NoError(os.WriteFile(configFile, []byte(
		"brokers:\n  - id: rh\n    provider: robinhood\n    config:\n      username: ${TEST_RH_USER}\n      password: p\n",
	), 0o600))

	config, err := Load(configFile, envFile, filepath.Join(dir, "missing.env"))
	suite.Require().NoError(err)
	suite.Equal("ada", config.Brokers[0].Config.Content[1].Value)

	_, err = Load(filepath.Join(dir, "absent.yaml"), envFile)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestNewRouter() {
	config, err := Parse([]byte(gatewayYAML))
	suite.Require().NoError(err)

	r, err := NewRouter(config, broker.Deps{Logger: logger.NewNopLogger()})
	suite.Require().NoError(err)

	brokers := r.Brokers()
	suite.Require().Len(brokers, 2)
	suite.Equal("ib", brokers[0].ID())
	suite.Equal(broker.ProviderIBGatewayPaper, brokers[0].Provider())
	suite.Equal("crypto", brokers[1].ID())
	suite.Equal(broker.ProviderBinancePaper, brokers[1].Provider())
}

func (suite *ConfigTestSuite) TestNewRouterBrokerConfigError() {
	config, err := Parse([]byte("brokers:\n  - id: ib\n    provider: ibgateway-live\n    config:\n      host: gw\n"))
	suite.Require().NoError(err)

	_, err = NewRouter(config, broker.Deps{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
	suite.Contains(err.Error(), "broker ib")
}
