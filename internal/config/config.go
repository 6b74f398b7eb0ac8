// Package config loads the orchestrator configuration from a yaml file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	Relay    RelayConfig    `yaml:"relay"`
	Chain    ChainConfig    `yaml:"chain"`
	Identity IdentityConfig `yaml:"identity"`
	Redis    RedisConfig    `yaml:"redis"`
	Mint     MintConfig     `yaml:"mint"`
	Session  SessionConfig  `yaml:"session"`
	Listen   string         `yaml:"listen"`
}

type RelayConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

type ChainConfig struct {
	RPCURL              string `yaml:"rpcUrl"`
	ChainID             int64  `yaml:"chainId"`
	PermissionsContract string `yaml:"permissionsContract"`

	// FeeCeilingGwei caps the total fee (gas price * limit) of permission
	// mutations. Zero disables the ceiling.
	FeeCeilingGwei decimal.Decimal `yaml:"feeCeilingGwei"`
}

type IdentityConfig struct {
	URL       string `yaml:"url"`
	ProjectID string `yaml:"projectId"`
	Secret    string `yaml:"secret"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type MintConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	PollDeadline time.Duration `yaml:"pollDeadline"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Relay: RelayConfig{URL: "https://relay.example.com"},
		Chain: ChainConfig{
			RPCURL:  "http://localhost:8545",
			ChainID: 175177,
		},
		Redis:  RedisConfig{URL: "redis://localhost:6379/0"},
		Listen: ":9000",
		Mint: MintConfig{
			PollInterval: 3 * time.Second,
			MaxAttempts:  20,
			PollDeadline: 2 * time.Minute,
		},
		Session: SessionConfig{TTL: 7 * 24 * time.Hour},
	}
}

// Load reads the yaml file at path, merges it over the defaults and applies
// environment overrides. A missing file is not an error; defaults plus
// environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Mint.PollInterval <= 0 {
		cfg.Mint.PollInterval = Default().Mint.PollInterval
	}
	if cfg.Mint.MaxAttempts <= 0 {
		cfg.Mint.MaxAttempts = Default().Mint.MaxAttempts
	}
	if cfg.Mint.PollDeadline <= 0 {
		cfg.Mint.PollDeadline = Default().Mint.PollDeadline
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = Default().Session.TTL
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KEYSTONE_RELAY_URL"); v != "" {
		cfg.Relay.URL = v
	}
	if v := os.Getenv("KEYSTONE_RELAY_API_KEY"); v != "" {
		cfg.Relay.APIKey = v
	}
	if v := os.Getenv("KEYSTONE_CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("KEYSTONE_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = id
		}
	}
	if v := os.Getenv("KEYSTONE_PERMISSIONS_CONTRACT"); v != "" {
		cfg.Chain.PermissionsContract = v
	}
	if v := os.Getenv("KEYSTONE_IDP_URL"); v != "" {
		cfg.Identity.URL = v
	}
	if v := os.Getenv("KEYSTONE_IDP_PROJECT_ID"); v != "" {
		cfg.Identity.ProjectID = v
	}
	if v := os.Getenv("KEYSTONE_IDP_SECRET"); v != "" {
		cfg.Identity.Secret = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("KEYSTONE_LISTEN"); v != "" {
		cfg.Listen = v
	}
}
