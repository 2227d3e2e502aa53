// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"fmt"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/ledger/memledger"
	"github.com/shopspring/decimal"
)

// Seed creates the simulation accounts and order books in the in-memory
// ledger.
func (s *Simulation) Seed(l *memledger.Ledger) error {
	for i, a := range s.Accounts {
		id, err := l.AddAccount(a.Secret, a.Sequence)
		if err != nil {
			return fmt.Errorf("could not add simulation account %d: %w", i, err)
		}
		for name, amount := range a.Balances {
			x, err := asset.Parse(name)
			if err != nil {
				return fmt.Errorf("simulation account %s: %w", id, err)
			}
			v, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("simulation account %s: invalid %s balance %q: %w", id, name, amount, err)
			}
			if err := l.SetBalance(id, x, v); err != nil {
				return err
			}
		}
	}

	for _, b := range s.OrderBooks {
		asks, err := toLevels(b.Asks)
		if err != nil {
			return fmt.Errorf("simulation book %s/%s: %w", b.Selling, b.Buying, err)
		}
		bids, err := toLevels(b.Bids)
		if err != nil {
			return fmt.Errorf("simulation book %s/%s: %w", b.Selling, b.Buying, err)
		}
		l.SetOrderBook(b.Selling, b.Buying, asks, bids)
	}
	return nil
}

func toLevels(levels []SimLevel) ([]*ledger.PriceLevel, error) {
	var vs []*ledger.PriceLevel
	for _, v := range levels {
		p, err := ledger.ParsePrice(v.Price)
		if err != nil {
			return nil, err
		}
		vs = append(vs, &ledger.PriceLevel{Price: p, Amount: v.Amount})
	}
	return vs, nil
}
