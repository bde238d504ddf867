package ibgateway

import (
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/resilience"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/internal/wire"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultShutdownGrace  = 2 * time.Second
	DefaultReplayAttempts = 2
)

// Config contains configuration for a socket gateway connection.
type Config struct {
	Host     string `json:"host" yaml:"host" jsonschema:"title=Host,description=Gateway host name or address" validate:"required"`
	Port     int    `json:"port" yaml:"port" jsonschema:"title=Port,description=Gateway API port" validate:"required,min=1,max=65535"`
	ClientID int64  `json:"clientId" yaml:"client_id" jsonschema:"title=Client ID,description=API client id; one session per id" validate:"gte=0"`
	// Account defaults to the first managed account announced by the gateway.
	Account string `json:"account,omitempty" yaml:"account" jsonschema:"title=Account,description=Account to trade; defaults to the first managed account"`
	Framing string `json:"framing,omitempty" yaml:"framing" jsonschema:"title=Framing,enum=length-prefixed,enum=delimited" validate:"omitempty,oneof=length-prefixed delimited"`
	// DefaultAssetClass is used for symbols the gateway has not reported on.
	DefaultAssetClass types.AssetClass `json:"defaultAssetClass,omitempty" yaml:"default_asset_class" jsonschema:"title=Default Asset Class,enum=equity,enum=crypto,enum=option,enum=future,enum=forex" validate:"omitempty,oneof=equity crypto option future forex"`

	ConnectTimeout time.Duration `json:"connectTimeout,omitempty" yaml:"connect_timeout" jsonschema:"title=Connect Timeout,description=Handshake bound in nanoseconds" validate:"gte=0"`
	RequestTimeout time.Duration `json:"requestTimeout,omitempty" yaml:"request_timeout" jsonschema:"title=Request Timeout,description=Per-request bound in nanoseconds" validate:"gte=0"`
	ShutdownGrace  time.Duration `json:"shutdownGrace,omitempty" yaml:"shutdown_grace" jsonschema:"title=Shutdown Grace,description=How long Disconnect drains pending requests" validate:"gte=0"`
	// ReplayAttempts bounds how often a data request cut off by a dropped
	// connection is sent again after reconnecting. Negative disables replay.
	ReplayAttempts int `json:"replayAttempts,omitempty" yaml:"replay_attempts" jsonschema:"title=Replay Attempts,description=Re-sends of a data request after a reconnect"`

	// Reconnect is validated once defaults are applied.
	Reconnect resilience.Policy `json:"reconnect" yaml:"reconnect" validate:"-"`
	Orders    orders.Config     `json:"orders" yaml:"orders"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid ibgateway config", err)
	}

	return nil
}

// WithDefaults fills unset timeouts, framing and reconnect policy.
func (c Config) WithDefaults() Config {
	if c.Framing == "" {
		c.Framing = wire.FramingLengthPrefixed.String()
	}

	if c.DefaultAssetClass == "" {
		c.DefaultAssetClass = types.AssetClassEquity
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}

	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}

	if c.ReplayAttempts == 0 {
		c.ReplayAttempts = DefaultReplayAttempts
	}

	c.Reconnect = c.Reconnect.WithDefaults()

	return c
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParseConfig parses a JSON configuration string into a Config.
func ParseConfig(jsonConfig string) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse ibgateway config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
