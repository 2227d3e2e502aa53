// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/shopspring/decimal"
)

type Balance struct {
	Asset  asset.Asset
	Amount decimal.Decimal

	// SellingLiabilities is the amount locked by the account's open offers
	// selling this asset.
	SellingLiabilities decimal.Decimal
}

// Available returns the balance that is not locked by open offers.
func (b *Balance) Available() decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	v := b.Amount.Sub(b.SellingLiabilities)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

type Account struct {
	ID       string
	Sequence int64
	Balances []*Balance
}

// FindBalance returns the balance for the asset or nil if the account doesn't
// hold it.
func FindBalance(balances []*Balance, a asset.Asset) *Balance {
	for _, b := range balances {
		if b.Asset.Equal(a) {
			return b
		}
	}
	return nil
}

type Offer struct {
	ID     int64
	Seller string

	Selling asset.Asset
	Buying  asset.Asset

	// Amount is in selling asset units.
	Amount decimal.Decimal

	// Price is buying asset units per one selling asset unit.
	Price Price
}

// FindOffer returns the offer with the given id from a snapshot or nil.
func FindOffer(offers []*Offer, id int64) *Offer {
	for _, o := range offers {
		if o.ID == id {
			return o
		}
	}
	return nil
}

type PriceLevel struct {
	Price  Price
	Amount decimal.Decimal
}

// OrderBook holds the offers for an asset pair. Asks sell the Selling asset
// and bids buy it. Prices on both sides are Buying units per one Selling unit;
// asks are sorted in ascending and bids in descending price order. Amounts on
// both sides are in Selling units, so bid offers are converted with
// BidAmount.
type OrderBook struct {
	Selling asset.Asset
	Buying  asset.Asset

	Asks []*PriceLevel
	Bids []*PriceLevel
}

// BidAmount converts the amount of a bid offer, which is in the book's Buying
// units, into the book's Selling units at the bid price p.
func BidAmount(amount decimal.Decimal, p Price) decimal.Decimal {
	if p.N <= 0 || p.D <= 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt32(p.D)).Div(decimal.NewFromInt32(p.N)).Truncate(PriceDigits)
}

func (b *OrderBook) BestAsk() *PriceLevel {
	if b == nil || len(b.Asks) == 0 {
		return nil
	}
	return b.Asks[0]
}

func (b *OrderBook) BestBid() *PriceLevel {
	if b == nil || len(b.Bids) == 0 {
		return nil
	}
	return b.Bids[0]
}

// Midpoint returns the mean of best ask and best bid prices. When only one side
// has offers, its best price is returned. Returns false if the book is empty.
func (b *OrderBook) Midpoint() (decimal.Decimal, bool) {
	ask, bid := b.BestAsk(), b.BestBid()
	switch {
	case ask != nil && bid != nil:
		return ask.Price.Decimal().Add(bid.Price.Decimal()).Div(decimal.NewFromInt(2)), true
	case ask != nil:
		return ask.Price.Decimal(), true
	case bid != nil:
		return bid.Price.Decimal(), true
	}
	return decimal.Zero, false
}

type Trade struct {
	ID string

	Base    asset.Asset
	Counter asset.Asset

	BaseAmount    decimal.Decimal
	CounterAmount decimal.Decimal
	BaseIsSeller  bool

	Time time.Time
}

// Price returns the counter units paid per one base unit.
func (t *Trade) Price() decimal.Decimal {
	if t.BaseAmount.IsZero() {
		return decimal.Zero
	}
	return t.CounterAmount.Div(t.BaseAmount)
}
