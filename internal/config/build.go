package config

import (
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/broker/provider"
	"github.com/rxtech-lab/argo-gateway/internal/marketdata"
	"github.com/rxtech-lab/argo-gateway/internal/router"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// NewBroker decodes the provider settings and creates the adapter.
func (b *BrokerConfig) NewBroker(deps broker.Deps) (broker.Broker, error) {
	config, err := provider.ParseProviderConfigYAML(b.Provider, &b.Config)
	if err != nil {
		return nil, errors.Wrapf(errors.GetCode(err), err, "broker %s", b.ID)
	}

	return provider.NewBroker(b.ID, broker.ProviderType(b.Provider), config, deps)
}

// NewRouter creates the fallback market data source and every enabled broker
// and registers the brokers in file order. Nothing is connected.
func NewRouter(c *Config, deps broker.Deps) (*router.Router, error) {
	deps = deps.WithDefaults()

	opts := []router.Option{router.WithLogger(deps.Logger)}

	if c.MarketData != nil {
		source, err := marketdata.NewSource(*c.MarketData, deps.Logger)
		if err != nil {
			return nil, err
		}

		opts = append(opts, router.WithFallback(source))
	}

	r := router.New(c.Router, opts...)

	for _, bc := range c.EnabledBrokers() {
		b, err := bc.NewBroker(deps)
		if err != nil {
			return nil, err
		}

		if err := r.Register(b); err != nil {
			return nil, err
		}
	}

	return r, nil
}
