// Copyright (c) 2025 BVK Chaitanya

package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/offer"
	"github.com/shopspring/decimal"
)

// MarketMaker keeps at most one offer on its side of the book, priced at a
// spread over the book's midpoint.
type MarketMaker struct {
	cfg *Config
}

var _ Evaluator = (*MarketMaker)(nil)

func NewMarketMaker(cfg *Config) (Evaluator, error) {
	cfg.SetDefaults()
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &MarketMaker{cfg: cfg}, nil
}

func (m *MarketMaker) Evaluate(ctx context.Context, snap *Snapshot) ([]*offer.Intent, error) {
	selling, buying := m.cfg.Side()

	var intents []*offer.Intent
	mine := SideOffers(snap, m.cfg)
	if len(mine) > 1 {
		for _, o := range mine[1:] {
			intents = append(intents, offer.NewCancel(o.ID, "duplicate offer on side"))
		}
		mine = mine[:1]
	}

	balance := ledger.FindBalance(snap.Balances, selling)
	total := decimal.Zero
	if balance != nil {
		total = balance.Amount
	}

	if len(mine) == 1 {
		o := mine[0]
		if total.IsZero() || total.LessThan(o.Amount) {
			return append(intents, offer.NewCancel(o.ID, "insufficient balance")), nil
		}
	}

	ref, ok := m.referencePrice(snap)
	if !ok {
		slog.DebugContext(ctx, "no reference price for the pair", "account", snap.Account, "selling", selling, "buying", buying)
		return intents, nil
	}
	if m.isVolatile(snap) {
		slog.InfoContext(ctx, "recent trades are too volatile; holding offers", "account", snap.Account, "selling", selling, "buying", buying)
		return intents, nil
	}

	target := ref.Mul(decimal.NewFromInt(1).Add(m.cfg.Spread))
	price, err := ledger.PriceFromDecimal(target)
	if err != nil {
		return intents, fmt.Errorf("could not determine offer price: %w", err)
	}

	if len(mine) == 1 {
		o := mine[0]
		if drift(o.Price.Decimal(), target).LessThanOrEqual(m.cfg.Tolerance) {
			return intents, nil
		}
		reason := fmt.Sprintf("reference price moved to %s", ref.StringFixed(7))
		return append(intents, offer.NewAmend(o, o.Amount, price, reason)), nil
	}

	available := balance.Available()
	if selling.IsNative() {
		available = available.Sub(m.cfg.NativeReserve)
	}
	amount := available.Mul(m.cfg.Fraction).Truncate(offer.Precision)
	if !amount.IsPositive() || amount.LessThan(m.cfg.MinAmount) {
		return intents, nil
	}
	reason := fmt.Sprintf("no open offer at reference price %s", ref.StringFixed(7))
	return append(intents, offer.NewCreate(selling, buying, amount, price, reason)), nil
}

// referencePrice returns the midpoint of the book excluding the account's own
// offers, or the most recent trade price when the book is empty.
func (m *MarketMaker) referencePrice(snap *Snapshot) (decimal.Decimal, bool) {
	if book := excludeOffers(snap.OrderBook, snap.Offers); book != nil {
		if mid, ok := book.Midpoint(); ok {
			return mid, true
		}
	}
	selling, buying := m.cfg.Side()
	for _, t := range snap.Trades {
		if t.Base.Equal(selling) && t.Counter.Equal(buying) {
			if p := t.Price(); p.IsPositive() {
				return p, true
			}
		}
	}
	return decimal.Zero, false
}

func (m *MarketMaker) isVolatile(snap *Snapshot) bool {
	if !m.cfg.MaxVolatility.IsPositive() || len(snap.Trades) < 2 {
		return false
	}
	var lo, hi decimal.Decimal
	for i, t := range snap.Trades {
		p := t.Price()
		if i == 0 || p.LessThan(lo) {
			lo = p
		}
		if i == 0 || p.GreaterThan(hi) {
			hi = p
		}
	}
	if !lo.IsPositive() {
		return false
	}
	return hi.Sub(lo).Div(lo).GreaterThan(m.cfg.MaxVolatility)
}

func drift(current, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return current.Sub(target).Abs().Div(target)
}

// excludeOffers returns a copy of the book without the amounts contributed by
// the given offers. Bid amounts are converted into selling units, so a level
// left with at most one stroop per subtracted offer is treated as empty.
func excludeOffers(book *ledger.OrderBook, offers []*ledger.Offer) *ledger.OrderBook {
	if book == nil {
		return nil
	}
	stroop := decimal.New(1, -ledger.PriceDigits)
	subtracted := make(map[*ledger.PriceLevel]int)
	subtract := func(levels []*ledger.PriceLevel, p ledger.Price, amount decimal.Decimal) {
		for _, l := range levels {
			if l.Price.Equal(p) {
				l.Amount = l.Amount.Sub(amount)
				subtracted[l]++
				return
			}
		}
	}
	clone := func(levels []*ledger.PriceLevel) []*ledger.PriceLevel {
		vs := make([]*ledger.PriceLevel, 0, len(levels))
		for _, l := range levels {
			v := *l
			vs = append(vs, &v)
		}
		return vs
	}
	prune := func(levels []*ledger.PriceLevel) []*ledger.PriceLevel {
		vs := levels[:0]
		for _, l := range levels {
			if l.Amount.GreaterThan(stroop.Mul(decimal.NewFromInt(int64(subtracted[l])))) {
				vs = append(vs, l)
			}
		}
		return vs
	}

	v := &ledger.OrderBook{
		Selling: book.Selling,
		Buying:  book.Buying,
		Asks:    clone(book.Asks),
		Bids:    clone(book.Bids),
	}
	for _, o := range offers {
		switch {
		case o.Selling.Equal(book.Selling) && o.Buying.Equal(book.Buying):
			subtract(v.Asks, o.Price, o.Amount)
		case o.Selling.Equal(book.Buying) && o.Buying.Equal(book.Selling):
			bid := o.Price.Invert()
			subtract(v.Bids, bid, ledger.BidAmount(o.Amount, bid))
		}
	}
	v.Asks, v.Bids = prune(v.Asks), prune(v.Bids)
	return v
}
