// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// StrategyConfig is the persisted form of a strategy configuration. Assets
// are saved in their text form.
type StrategyConfig struct {
	Name string
	Mode string

	Selling string
	Buying  string

	Fraction      decimal.Decimal
	Spread        decimal.Decimal
	Tolerance     decimal.Decimal
	MaxVolatility decimal.Decimal
	NativeReserve decimal.Decimal
	MinAmount     decimal.Decimal

	CancelOnStop bool
}

// JobRecord holds the metadata of a trading job. Signing credentials are
// never saved.
type JobRecord struct {
	ID      string
	Account string

	Strategy *StrategyConfig

	State string
	Phase string
	Cause string

	Cycles int

	CreatedAt time.Time
	UpdatedAt time.Time
}

type KeyValue struct {
	Key   string
	Value []byte
}
