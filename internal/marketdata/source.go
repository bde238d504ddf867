// Package marketdata provides market data from a vendor when the broker
// serving a request has none.
package marketdata

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Source serves quotes and historical bars.
type Source interface {
	Name() string
	GetQuote(ctx context.Context, symbol string) (types.Quote, error)
	// GetBars returns the bars in [start, end], oldest first.
	GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error)
}

type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
)

// Config selects and configures the fallback source.
type Config struct {
	Provider ProviderType `json:"provider" yaml:"provider" jsonschema:"title=Provider,enum=polygon" validate:"required,oneof=polygon"`
	APIKey   string       `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Vendor API key" validate:"required"`
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid market data config", err)
	}

	return nil
}

// NewSource creates the source named by the config.
func NewSource(cfg Config, log *logger.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderPolygon:
		return NewPolygonSource(cfg.APIKey, log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", cfg.Provider)
	}
}
