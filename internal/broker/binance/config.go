package binance

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

const (
	// DefaultDecimalPrecision is a default decimal precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for BTC-like assets.
	DefaultDecimalPrecision = 8
	// DefaultQuoteAsset is the asset positions are priced in.
	DefaultQuoteAsset = "USDT"
)

// Config contains configuration for Binance spot trading.
type Config struct {
	APIKey    string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	// BaseURL takes precedence over the testnet switch.
	BaseURL string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=Override of the REST endpoint" validate:"omitempty,url"`
	// QuoteAssets are treated as cash. The first one names the account
	// currency and the market positions are quoted in.
	QuoteAssets      []string `json:"quoteAssets,omitempty" yaml:"quote_assets" jsonschema:"title=Quote Assets,description=Assets counted as cash balance" validate:"omitempty,dive,required,uppercase"`
	DecimalPrecision int      `json:"decimalPrecision,omitempty" yaml:"decimal_precision" jsonschema:"title=Decimal Precision,description=Quantity precision used when rounding orders" validate:"gte=0,lte=16"`

	Orders orders.Config `json:"orders" yaml:"orders"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance config", err)
	}

	return nil
}

// WithDefaults fills unset quote assets and precision.
func (c Config) WithDefaults() Config {
	if len(c.QuoteAssets) == 0 {
		c.QuoteAssets = []string{DefaultQuoteAsset, "BUSD", "USD"}
	}

	if c.DecimalPrecision == 0 {
		c.DecimalPrecision = DefaultDecimalPrecision
	}

	return c
}

// ParseConfig parses a JSON configuration string into a Config.
func ParseConfig(jsonConfig string) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse binance config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
