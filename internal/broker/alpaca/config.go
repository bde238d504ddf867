package alpaca

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

const (
	PaperBaseURL = "https://paper-api.alpaca.markets"
	LiveBaseURL  = "https://api.alpaca.markets"
	DefaultFeed  = "iex"
)

// Config contains configuration for Alpaca trading and market data.
type Config struct {
	APIKey    string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Alpaca API key id" validate:"required"`
	APISecret string `json:"apiSecret" yaml:"api_secret" jsonschema:"title=API Secret,description=Alpaca API secret key" validate:"required"`
	// BaseURL defaults to the paper or live trading endpoint of the provider.
	BaseURL string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=Override of the trading endpoint" validate:"omitempty,url"`
	DataURL string `json:"dataUrl,omitempty" yaml:"data_url" jsonschema:"title=Data URL,description=Override of the market data endpoint" validate:"omitempty,url"`
	Feed    string `json:"feed,omitempty" yaml:"feed" jsonschema:"title=Feed,description=Stock data feed,enum=iex,enum=sip" validate:"omitempty,oneof=iex sip"`

	Orders orders.Config `json:"orders" yaml:"orders"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid alpaca config", err)
	}

	return nil
}

// WithDefaults fills the endpoint for the paper or live account and the feed.
func (c Config) WithDefaults(paper bool) Config {
	if c.BaseURL == "" {
		c.BaseURL = LiveBaseURL
		if paper {
			c.BaseURL = PaperBaseURL
		}
	}

	if c.Feed == "" {
		c.Feed = DefaultFeed
	}

	return c
}

// ParseConfig parses a JSON configuration string into a Config.
func ParseConfig(jsonConfig string) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse alpaca config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
