// Copyright (c) 2025 BVK Chaitanya

// Package strategy defines the decision policy interface used by the bots and
// a reference market making policy.
package strategy

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/offer"
)

// Snapshot holds the ledger state observed at the beginning of a cycle.
type Snapshot struct {
	Account  string
	Sequence int64

	Balances []*ledger.Balance

	// Offers holds all open offers of the account.
	Offers []*ledger.Offer

	// OrderBook is the book for the strategy's side.
	OrderBook *ledger.OrderBook

	// Trades holds the recent trades of the pair, newest first.
	Trades []*ledger.Trade

	Time time.Time
}

// Evaluator decides the manage offer operations for a snapshot. Returned
// intents are applied in order.
type Evaluator interface {
	Evaluate(ctx context.Context, snap *Snapshot) ([]*offer.Intent, error)
}

type NewFunc func(cfg *Config) (Evaluator, error)

var (
	mu       sync.Mutex
	registry = map[string]NewFunc{
		DefaultName: NewMarketMaker,
	}
)

// Register adds an evaluator constructor. Returns os.ErrExist if the name is
// already taken.
func Register(name string, fn NewFunc) error {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := registry[name]; ok {
		return fmt.Errorf("strategy %q: %w", name, os.ErrExist)
	}
	registry[name] = fn
	return nil
}

// Names returns the registered evaluator names.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()

	var names []string
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates an evaluator for the config. Config defaults are applied to the
// input.
func New(cfg *Config) (Evaluator, error) {
	cfg.SetDefaults()
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	mu.Lock()
	fn, ok := registry[cfg.Name]
	mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", cfg.Name, os.ErrNotExist)
	}
	return fn(cfg.Clone())
}

// SideOffers returns the snapshot offers selling and buying the given assets,
// sorted by offer id.
func SideOffers(snap *Snapshot, cfg *Config) []*ledger.Offer {
	selling, buying := cfg.Side()
	var offers []*ledger.Offer
	for _, o := range snap.Offers {
		if o.Selling.Equal(selling) && o.Buying.Equal(buying) {
			offers = append(offers, o)
		}
	}
	slices.SortFunc(offers, func(a, b *ledger.Offer) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return offers
}
