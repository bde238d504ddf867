// Package config loads the gateway configuration file.
package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/marketdata"
	"github.com/rxtech-lab/argo-gateway/internal/router"
	"github.com/rxtech-lab/argo-gateway/internal/version"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BrokerConfig declares one broker adapter. Config holds the provider's own
// settings and is decoded once the provider is known.
type BrokerConfig struct {
	ID       string    `yaml:"id" validate:"required,excludesall= /"`
	Provider string    `yaml:"provider" validate:"required"`
	Disabled bool      `yaml:"disabled"`
	Config   yaml.Node `yaml:"config" validate:"-"`
}

// Config is the root of the gateway configuration file.
//
//	version: 1.0.0
//	log_level: info
//	router:
//	  policy: first_connected
//	  default_broker: ib
//	market_data:
//	  provider: polygon
//	  api_key: ${POLYGON_API_KEY}
//	brokers:
//	  - id: ib
//	    provider: ibgateway-paper
//	    config:
//	      host: 127.0.0.1
//	      port: 4002
type Config struct {
	// Version is the gateway version the file was written for.
	Version    string             `yaml:"version"`
	LogLevel   string             `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Router     router.Config      `yaml:"router"`
	MarketData *marketdata.Config `yaml:"market_data"`
	Brokers    []BrokerConfig     `yaml:"brokers" validate:"required,min=1,dive"`
}

// Load reads .env files (missing ones are skipped), then the YAML file at
// path with ${VAR} references expanded from the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnv(envFiles...); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

func loadEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load env file %s", file)
		}
	}

	return nil
}

// Parse expands environment references in data and decodes and validates the
// configuration.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)

	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid gateway config", err)
	}

	if c.Version != "" {
		if err := version.CheckConfigCompatibility(version.GetVersion(), c.Version); err != nil {
			return err
		}
	}

	if c.MarketData != nil {
		if err := c.MarketData.Validate(); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(c.Brokers))
	for _, b := range c.Brokers {
		if seen[b.ID] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "duplicate broker id: %s", b.ID)
		}

		seen[b.ID] = true

		if _, err := broker.GetProviderInfo(b.Provider); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "broker %s", b.ID)
		}
	}

	if c.Router.DefaultBroker != "" && !seen[c.Router.DefaultBroker] {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "default broker %s is not configured", c.Router.DefaultBroker)
	}

	return nil
}

// EnabledBrokers returns the brokers not marked disabled, in file order.
func (c *Config) EnabledBrokers() []BrokerConfig {
	var result []BrokerConfig

	for _, b := range c.Brokers {
		if !b.Disabled {
			result = append(result, b)
		}
	}

	return result
}

// Summary describes the configuration without any broker settings, which
// carry credentials.
func (c *Config) Summary() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "policy=%s", c.Router.Policy)

	if c.MarketData != nil {
		fmt.Fprintf(&buf, " market_data=%s", c.MarketData.Provider)
	}

	for _, b := range c.Brokers {
		fmt.Fprintf(&buf, " broker=%s(%s)", b.ID, b.Provider)
	}

	return buf.String()
}
