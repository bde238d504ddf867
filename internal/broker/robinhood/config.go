package robinhood

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.robinhood.com"
	// DefaultClientID is the public client id of the Robinhood web app.
	DefaultClientID          = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
	DefaultRequestsPerSecond = 2
	DefaultBurst             = 5
	DefaultPollInterval      = 2 * time.Second
	DefaultTimeout           = 15 * time.Second
)

// Config contains configuration for the Robinhood API. Durations are
// nanoseconds in JSON.
type Config struct {
	Username string `json:"username" yaml:"username" jsonschema:"title=Username,description=Account username or email" validate:"required"`
	Password string `json:"password" yaml:"password" jsonschema:"title=Password,description=Account password" validate:"required"`
	// MFACode is the one-time code sent after a login that needs verification.
	MFACode string `json:"mfaCode,omitempty" yaml:"mfa_code" jsonschema:"title=MFA Code,description=One-time verification code" validate:"omitempty,numeric"`
	// DeviceToken identifies this client across logins. A random one is used
	// when empty, which triggers verification on every login.
	DeviceToken string `json:"deviceToken,omitempty" yaml:"device_token" jsonschema:"title=Device Token,description=Stable device id (UUID)" validate:"omitempty,uuid"`
	ClientID    string `json:"clientId,omitempty" yaml:"client_id" jsonschema:"title=Client ID,description=OAuth client id" validate:"omitempty"`
	BaseURL     string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=API endpoint" validate:"omitempty,url"`

	RequestsPerSecond float64       `json:"requestsPerSecond,omitempty" yaml:"requests_per_second" jsonschema:"title=Requests per second,description=Client side request rate" validate:"gte=0"`
	Burst             int           `json:"burst,omitempty" yaml:"burst" jsonschema:"title=Burst,description=Requests allowed above the rate" validate:"gte=0"`
	PollInterval      time.Duration `json:"pollInterval,omitempty" yaml:"poll_interval" jsonschema:"title=Poll interval,description=Interval between quote and order polls" validate:"gte=0"`
	Timeout           time.Duration `json:"timeout,omitempty" yaml:"timeout" jsonschema:"title=Timeout,description=Per request timeout" validate:"gte=0"`

	Orders orders.Config `json:"orders" yaml:"orders"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid robinhood config", err)
	}

	return nil
}

func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}

	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}

	if c.Burst == 0 {
		c.Burst = DefaultBurst
	}

	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	return c
}

// ParseConfig parses a JSON configuration string into a Config.
func ParseConfig(jsonConfig string) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse robinhood config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
