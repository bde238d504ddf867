package ibgateway

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParseConfig() {
	tests := []struct {
		name      string
		json      string
		expectErr bool
	}{
		{name: "Minimal", json: `{"host":"127.0.0.1","port":4002}`},
		{name: "Delimited", json: `{"host":"gw","port":4001,"framing":"delimited"}`},
		{name: "Reconnect policy", json: `{"host":"gw","port":4001,"reconnect":{"base":1000000000,"max_attempts":3}}`},
		{name: "Missing host", json: `{"port":4002}`, expectErr: true},
		{name: "Port out of range", json: `{"host":"gw","port":70000}`, expectErr: true},
		{name: "Unknown framing", json: `{"host":"gw","port":4002,"framing":"xml"}`, expectErr: true},
		{name: "Unknown asset class", json: `{"host":"gw","port":4002,"defaultAssetClass":"bond"}`, expectErr: true},
		{name: "Malformed", json: `[`, expectErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := ParseConfig(tc.json)
			if tc.expectErr {
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

				return
			}

			suite.NoError(err)
		})
	}
}

func (suite *ConfigTestSuite) TestWithDefaults() {
	config := Config{Host: "gw", Port: 4002}.WithDefaults()
	suite.Equal(wire.FramingLengthPrefixed.String(), config.Framing)
	suite.Equal(DefaultRequestTimeout, config.RequestTimeout)
	suite.Equal(DefaultReplayAttempts, config.ReplayAttempts)
	suite.Equal(time.Second, config.Reconnect.Base)
	suite.NoError(config.Reconnect.Validate())
	suite.Equal("gw:4002", config.Address())
}
