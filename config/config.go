// Copyright (c) 2025 BVK Chaitanya

// Package config loads the process configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/bot"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "makerbot.yaml"

const (
	Testnet = "testnet"
	Public  = "public"
)

type Horizon struct {
	URL     string `yaml:"url"`
	Network string `yaml:"network"`

	// RequestsPerSecond limits the request rate to the horizon server.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	Timeout time.Duration `yaml:"timeout"`
}

type Bot struct {
	Interval    time.Duration `yaml:"interval"`
	Tick        time.Duration `yaml:"tick"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type Pushover struct {
	ApplicationKey string `yaml:"application_key"`
	UserKey        string `yaml:"user_key"`
}

type Telegram struct {
	BotToken string   `yaml:"bot_token"`
	OwnerID  string   `yaml:"owner_id"`
	OtherIDs []string `yaml:"other_ids,omitempty"`
}

// SimAccount seeds an account in the simulated ledger.
type SimAccount struct {
	Secret   string            `yaml:"secret"`
	Sequence int64             `yaml:"sequence"`
	Balances map[string]string `yaml:"balances"`
}

type SimLevel struct {
	Price  string          `yaml:"price"`
	Amount decimal.Decimal `yaml:"amount"`
}

// SimBook seeds the external order book levels of an asset pair.
type SimBook struct {
	Selling asset.Asset `yaml:"selling"`
	Buying  asset.Asset `yaml:"buying"`
	Asks    []SimLevel  `yaml:"asks"`
	Bids    []SimLevel  `yaml:"bids"`
}

type Simulation struct {
	Accounts   []SimAccount `yaml:"accounts"`
	OrderBooks []SimBook    `yaml:"order_books"`
}

type Config struct {
	Horizon  Horizon  `yaml:"horizon"`
	Bot      Bot      `yaml:"bot"`
	Telegram Telegram `yaml:"telegram"`
	Pushover Pushover `yaml:"pushover"`

	// JournalFile is the SQLite journal path relative to the data directory.
	JournalFile string `yaml:"journal_file"`

	Simulation *Simulation `yaml:"simulation,omitempty"`
}

// Load reads the configuration file and applies the environment variable
// overrides. A missing file is the same as an empty file.
func Load(file string) (*Config, error) {
	cfg, err := Read(file)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	cfg.setDefaults()
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses the configuration file as is, without the defaults or the
// environment overrides.
func Read(file string) (*Config, error) {
	cfg := new(Config)
	data, err := os.ReadFile(file)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %q: %w", file, err)
	}
	return cfg, nil
}

// Save writes the configuration to the file with owner only permissions.
func Save(file string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		return fmt.Errorf("could not write config file %q: %w", file, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAKERBOT_HORIZON_URL"); v != "" {
		cfg.Horizon.URL = v
	}
	if v := os.Getenv("MAKERBOT_NETWORK"); v != "" {
		cfg.Horizon.Network = v
	}
	if v := os.Getenv("MAKERBOT_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("MAKERBOT_TELEGRAM_OWNER"); v != "" {
		cfg.Telegram.OwnerID = v
	}
	if v := os.Getenv("MAKERBOT_PUSHOVER_APP_KEY"); v != "" {
		cfg.Pushover.ApplicationKey = v
	}
	if v := os.Getenv("MAKERBOT_PUSHOVER_USER_KEY"); v != "" {
		cfg.Pushover.UserKey = v
	}
}

func (c *Config) setDefaults() {
	c.Horizon.Network = strings.ToLower(c.Horizon.Network)
	if c.Horizon.Network == "" {
		c.Horizon.Network = Testnet
	}
	if c.Horizon.URL == "" {
		if c.Horizon.Network == Public {
			c.Horizon.URL = "https://horizon.stellar.org/"
		} else {
			c.Horizon.URL = "https://horizon-testnet.stellar.org/"
		}
	}
	if c.Horizon.RequestsPerSecond == 0 {
		c.Horizon.RequestsPerSecond = 5
	}
	if c.Horizon.Timeout == 0 {
		c.Horizon.Timeout = 30 * time.Second
	}
	if c.JournalFile == "" {
		c.JournalFile = "journal.db"
	}
}

func (c *Config) Check() error {
	if c.Horizon.Network != Testnet && c.Horizon.Network != Public {
		return fmt.Errorf("network %q must be %s or %s: %w", c.Horizon.Network, Testnet, Public, os.ErrInvalid)
	}
	if c.Horizon.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative: %w", os.ErrInvalid)
	}
	if len(c.Telegram.BotToken) != 0 && len(c.Telegram.OwnerID) == 0 {
		return fmt.Errorf("telegram owner id is required with a bot token: %w", os.ErrInvalid)
	}
	if (c.Pushover.ApplicationKey == "") != (c.Pushover.UserKey == "") {
		return fmt.Errorf("pushover needs both application and user keys: %w", os.ErrInvalid)
	}
	if err := c.BotOptions().Check(); err != nil {
		return fmt.Errorf("invalid bot options: %w", err)
	}
	return nil
}

// BotOptions returns the runner options. Zero values are replaced by the
// runner defaults.
func (c *Config) BotOptions() *bot.Options {
	return &bot.Options{
		Interval:    c.Bot.Interval,
		Tick:        c.Bot.Tick,
		MaxRetries:  c.Bot.MaxRetries,
		BaseDelay:   c.Bot.BaseDelay,
		MaxDelay:    c.Bot.MaxDelay,
		CallTimeout: c.Bot.CallTimeout,
	}
}
