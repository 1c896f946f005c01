// Package config loads the service configuration from a YAML file on top
// of built-in defaults.
package config

import (
	"os"
	"time"

	"talos-staking/contract/constants"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Network        string        `yaml:"network"`
	Listen         string        `yaml:"listen"`
	MempoolBase    string        `yaml:"mempool_base"` // defaults to mempool.space for the network
	DBPath         string        `yaml:"db_path"`      // empty keeps the ledger in memory
	LogLevel       string        `yaml:"log_level"`
	LogDevelopment bool          `yaml:"log_development"`
	FeePoll        time.Duration `yaml:"fee_poll_interval"`
	FallbackFee    float64       `yaml:"fallback_fee_rate"` // sat/vB until the first poll succeeds
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	PrivateKey     string        `yaml:"private_key"` // hex key of the local wallet, optional
}

func Default() *Config {
	return &Config{
		Network:     constants.Testnet4,
		Listen:      ":8080",
		DBPath:      "",
		LogLevel:    "info",
		FeePoll:     15 * time.Second,
		FallbackFee: 2,
		HTTPTimeout: 10 * time.Second,
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values and fills the ones derived from the network.
func (c *Config) Validate() error {
	if _, err := constants.NetworkParams(c.Network); err != nil {
		return errors.Wrap(err, "network")
	}
	if c.MempoolBase == "" {
		c.MempoolBase = constants.MempoolBase(c.Network)
	}
	if c.FeePoll <= 0 {
		return errors.Errorf("fee_poll_interval must be positive, got %s", c.FeePoll)
	}
	if c.FallbackFee <= 0 {
		return errors.Errorf("fallback_fee_rate must be positive, got %v", c.FallbackFee)
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return nil
}

// Params returns the chain parameters of the configured network.
func (c *Config) Params() *chaincfg.Params {
	params, err := constants.NetworkParams(c.Network)
	if err != nil {
		return &chaincfg.TestNet3Params
	}
	return params
}
