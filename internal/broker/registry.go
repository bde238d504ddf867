package broker

import (
	"sort"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

type ProviderType string

const (
	ProviderIBGatewayPaper ProviderType = "ibgateway-paper"
	ProviderIBGatewayLive  ProviderType = "ibgateway-live"
	ProviderBinancePaper   ProviderType = "binance-paper"
	ProviderBinanceLive    ProviderType = "binance-live"
	ProviderAlpacaPaper    ProviderType = "alpaca-paper"
	ProviderAlpacaLive     ProviderType = "alpaca-live"
	ProviderRobinhood      ProviderType = "robinhood"
)

// Transport tells how an adapter talks to its broker.
type Transport string

const (
	TransportSocket Transport = "socket"
	TransportREST   Transport = "rest"
)

type ProviderInfo struct {
	Name           string    `json:"name"`
	DisplayName    string    `json:"displayName"`
	Description    string    `json:"description"`
	Transport      Transport `json:"transport"`
	IsPaperTrading bool      `json:"isPaperTrading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderIBGatewayPaper: {
		Name:           string(ProviderIBGatewayPaper),
		DisplayName:    "IB Gateway Paper",
		Description:    "Socket gateway connected to a paper trading account",
		Transport:      TransportSocket,
		IsPaperTrading: true,
	},
	ProviderIBGatewayLive: {
		Name:           string(ProviderIBGatewayLive),
		DisplayName:    "IB Gateway Live",
		Description:    "Socket gateway connected to a real-funds account",
		Transport:      TransportSocket,
		IsPaperTrading: false,
	},
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading cryptocurrency without real funds",
		Transport:      TransportREST,
		IsPaperTrading: true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds cryptocurrency trading",
		Transport:      TransportREST,
		IsPaperTrading: false,
	},
	ProviderAlpacaPaper: {
		Name:           string(ProviderAlpacaPaper),
		DisplayName:    "Alpaca Paper",
		Description:    "Alpaca paper trading API for US equities and crypto",
		Transport:      TransportREST,
		IsPaperTrading: true,
	},
	ProviderAlpacaLive: {
		Name:           string(ProviderAlpacaLive),
		DisplayName:    "Alpaca Live",
		Description:    "Alpaca live trading API for US equities and crypto",
		Transport:      TransportREST,
		IsPaperTrading: false,
	},
	ProviderRobinhood: {
		Name:           string(ProviderRobinhood),
		DisplayName:    "Robinhood",
		Description:    "OAuth brokerage API with password grant and MFA",
		Transport:      TransportREST,
		IsPaperTrading: false,
	},
}

// GetSupportedProviders returns the provider names in sorted order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific broker provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, UnsupportedProvider(providerName)
	}

	return info, nil
}

// IsPaper reports whether the provider trades without real funds.
func (p ProviderType) IsPaper() bool {
	return providerRegistry[p].IsPaperTrading
}

// UnsupportedProvider is the error returned for an unknown provider name.
func UnsupportedProvider(providerName string) error {
	return errors.Newf(errors.ErrCodeInvalidProvider, "unsupported broker provider: %s", providerName)
}
