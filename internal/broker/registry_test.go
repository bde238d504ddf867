package broker

import (
	"testing"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestGetSupportedProviders() {
	providers := GetSupportedProviders()
	suite.Len(providers, 7)
	suite.Contains(providers, "ibgateway-paper")
	suite.Contains(providers, "binance-live")
	suite.Contains(providers, "robinhood")
	suite.IsIncreasing(providers)
}

func (suite *RegistryTestSuite) TestGetProviderInfo() {
	info, err := GetProviderInfo("ibgateway-paper")
	suite.NoError(err)
	suite.Equal("ibgateway-paper", info.Name)
	suite.Equal(TransportSocket, info.Transport)
	suite.True(info.IsPaperTrading)

	info, err = GetProviderInfo("alpaca-live")
	suite.NoError(err)
	suite.Equal(TransportREST, info.Transport)
	suite.False(info.IsPaperTrading)
}

func (suite *RegistryTestSuite) TestGetProviderInfo_Unsupported() {
	_, err := GetProviderInfo("unsupported-provider")
	suite.Error(err)
	suite.Contains(err.Error(), "unsupported broker provider")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}

func (suite *RegistryTestSuite) TestIsPaper() {
	suite.True(ProviderBinancePaper.IsPaper())
	suite.False(ProviderBinanceLive.IsPaper())
	suite.False(ProviderType("nope").IsPaper())
}
