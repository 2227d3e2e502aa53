// Copyright (c) 2025 BVK Chaitanya

package strategy

import (
	"fmt"
	"os"
	"strings"

	"github.com/bvk/makerbot/asset"
	"github.com/shopspring/decimal"
)

type Mode string

const (
	// Bid mode bids for the pair's buying asset by selling the pair's selling
	// asset.
	Bid Mode = "bid"

	// Ask mode asks for the pair's selling asset by selling the pair's buying
	// asset.
	Ask Mode = "ask"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Bid, Ask:
		return m, nil
	}
	return "", fmt.Errorf("mode %q must be bid or ask: %w", s, os.ErrInvalid)
}

// Pair is written in the ledger's (selling, buying) order.
type Pair struct {
	Selling asset.Asset `yaml:"selling"`
	Buying  asset.Asset `yaml:"buying"`
}

func (p Pair) String() string {
	return p.Selling.String() + "/" + p.Buying.String()
}

const DefaultName = "marketmaker"

type Config struct {
	// Name selects the evaluator. Defaults to the reference market maker.
	Name string `yaml:"name"`

	Mode Mode `yaml:"mode"`
	Pair Pair `yaml:"pair"`

	// Fraction of the available balance used for a new offer.
	Fraction decimal.Decimal `yaml:"fraction"`

	// Spread is the relative distance of the offer price from the reference
	// price.
	Spread decimal.Decimal `yaml:"spread"`

	// Tolerance is the relative price drift allowed before an offer is amended.
	Tolerance decimal.Decimal `yaml:"tolerance"`

	// MaxVolatility holds offer creates and amends when the relative range of
	// recent trade prices exceeds it. Zero disables the check.
	MaxVolatility decimal.Decimal `yaml:"max_volatility"`

	// NativeReserve is the native balance never offered for sale.
	NativeReserve decimal.Decimal `yaml:"native_reserve"`

	// MinAmount is the smallest offer amount worth creating.
	MinAmount decimal.Decimal `yaml:"min_amount"`

	// CancelOnStop deletes the side's open offers when the bot is stopped.
	CancelOnStop bool `yaml:"cancel_on_stop"`
}

func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Fraction.IsZero() {
		c.Fraction = decimal.RequireFromString("0.1")
	}
	if c.Tolerance.IsZero() {
		c.Tolerance = decimal.RequireFromString("0.01")
	}
}

func (c *Config) Check() error {
	if c.Mode != Bid && c.Mode != Ask {
		return fmt.Errorf("mode %q must be bid or ask: %w", c.Mode, os.ErrInvalid)
	}
	if err := c.Pair.Selling.Check(); err != nil {
		return fmt.Errorf("invalid selling asset: %w", err)
	}
	if err := c.Pair.Buying.Check(); err != nil {
		return fmt.Errorf("invalid buying asset: %w", err)
	}
	if c.Pair.Selling.Equal(c.Pair.Buying) {
		return fmt.Errorf("pair assets must be different: %w", os.ErrInvalid)
	}
	one := decimal.NewFromInt(1)
	if !c.Fraction.IsPositive() || c.Fraction.GreaterThan(one) {
		return fmt.Errorf("fraction %s must be in (0, 1]: %w", c.Fraction, os.ErrInvalid)
	}
	if c.Spread.IsNegative() || !c.Spread.LessThan(one) {
		return fmt.Errorf("spread %s must be in [0, 1): %w", c.Spread, os.ErrInvalid)
	}
	if c.Tolerance.IsNegative() || !c.Tolerance.LessThan(one) {
		return fmt.Errorf("tolerance %s must be in [0, 1): %w", c.Tolerance, os.ErrInvalid)
	}
	if c.MaxVolatility.IsNegative() || c.NativeReserve.IsNegative() || c.MinAmount.IsNegative() {
		return fmt.Errorf("volatility, reserve and minimum amount cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Side returns the assets of the offers placed by the strategy.
func (c *Config) Side() (selling, buying asset.Asset) {
	if c.Mode == Ask {
		return c.Pair.Buying, c.Pair.Selling
	}
	return c.Pair.Selling, c.Pair.Buying
}

func (c *Config) Clone() *Config {
	v := *c
	return &v
}
