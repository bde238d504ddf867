// Package provider builds broker adapters from a provider name and its JSON
// configuration.
package provider

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/broker/alpaca"
	"github.com/rxtech-lab/argo-gateway/internal/broker/binance"
	"github.com/rxtech-lab/argo-gateway/internal/broker/ibgateway"
	"github.com/rxtech-lab/argo-gateway/internal/broker/robinhood"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ToJSONSchema reflects a config struct into an inline JSON schema.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal config schema", err)
	}

	return string(jsonSchemaBytes), nil
}

// GetProviderConfigSchema returns the JSON schema for a provider's configuration.
func GetProviderConfigSchema(providerName string) (string, error) {
	switch broker.ProviderType(providerName) {
	case broker.ProviderIBGatewayPaper, broker.ProviderIBGatewayLive:
		return ToJSONSchema(ibgateway.Config{})
	case broker.ProviderBinancePaper, broker.ProviderBinanceLive:
		return ToJSONSchema(binance.Config{})
	case broker.ProviderAlpacaPaper, broker.ProviderAlpacaLive:
		return ToJSONSchema(alpaca.Config{})
	case broker.ProviderRobinhood:
		return ToJSONSchema(robinhood.Config{})
	default:
		return "", broker.UnsupportedProvider(providerName)
	}
}

// ParseProviderConfig parses a JSON configuration string for the given
// provider. The result is a pointer to the provider's Config type.
func ParseProviderConfig(providerName string, jsonConfig string) (any, error) {
	switch broker.ProviderType(providerName) {
	case broker.ProviderIBGatewayPaper, broker.ProviderIBGatewayLive:
		return ibgateway.ParseConfig(jsonConfig)
	case broker.ProviderBinancePaper, broker.ProviderBinanceLive:
		return binance.ParseConfig(jsonConfig)
	case broker.ProviderAlpacaPaper, broker.ProviderAlpacaLive:
		return alpaca.ParseConfig(jsonConfig)
	case broker.ProviderRobinhood:
		return robinhood.ParseConfig(jsonConfig)
	default:
		return nil, broker.UnsupportedProvider(providerName)
	}
}

// ParseProviderConfigYAML decodes a provider's configuration from a YAML node,
// as embedded in the gateway configuration file. The result has the same type
// as ParseProviderConfig's.
func ParseProviderConfigYAML(providerName string, node *yaml.Node) (any, error) {
	switch broker.ProviderType(providerName) {
	case broker.ProviderIBGatewayPaper, broker.ProviderIBGatewayLive:
		return decodeYAML[ibgateway.Config](providerName, node)
	case broker.ProviderBinancePaper, broker.ProviderBinanceLive:
		return decodeYAML[binance.Config](providerName, node)
	case broker.ProviderAlpacaPaper, broker.ProviderAlpacaLive:
		return decodeYAML[alpaca.Config](providerName, node)
	case broker.ProviderRobinhood:
		return decodeYAML[robinhood.Config](providerName, node)
	default:
		return nil, broker.UnsupportedProvider(providerName)
	}
}

func decodeYAML[T any, PT interface {
	*T
	Validate() error
}](providerName string, node *yaml.Node) (any, error) {
	config := PT(new(T))

	if node != nil && !node.IsZero() {
		if err := node.Decode(config); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse %s config", providerName)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// NewBroker creates the adapter for providerType. config must be the value
// ParseProviderConfig returns for that provider.
func NewBroker(id string, providerType broker.ProviderType, config any, deps broker.Deps) (broker.Broker, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "broker id is required")
	}

	switch providerType {
	case broker.ProviderIBGatewayPaper, broker.ProviderIBGatewayLive:
		cfg, ok := config.(*ibgateway.Config)
		if !ok {
			return nil, invalidConfigType(providerType, config)
		}

		return ibgateway.NewAdapter(id, providerType, *cfg, deps)

	case broker.ProviderBinancePaper, broker.ProviderBinanceLive:
		cfg, ok := config.(*binance.Config)
		if !ok {
			return nil, invalidConfigType(providerType, config)
		}

		return binance.NewAdapter(id, providerType, *cfg, deps)

	case broker.ProviderAlpacaPaper, broker.ProviderAlpacaLive:
		cfg, ok := config.(*alpaca.Config)
		if !ok {
			return nil, invalidConfigType(providerType, config)
		}

		return alpaca.NewAdapter(id, providerType, *cfg, deps)

	case broker.ProviderRobinhood:
		cfg, ok := config.(*robinhood.Config)
		if !ok {
			return nil, invalidConfigType(providerType, config)
		}

		return robinhood.NewAdapter(id, *cfg, deps)

	default:
		return nil, broker.UnsupportedProvider(string(providerType))
	}
}

// NewBrokerFromJSON parses the configuration and creates the adapter.
func NewBrokerFromJSON(id string, providerName string, jsonConfig string, deps broker.Deps) (broker.Broker, error) {
	config, err := ParseProviderConfig(providerName, jsonConfig)
	if err != nil {
		return nil, err
	}

	return NewBroker(id, broker.ProviderType(providerName), config, deps)
}

func invalidConfigType(providerType broker.ProviderType, config any) error {
	return errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid config type %T for %s provider", config, providerType)
}
