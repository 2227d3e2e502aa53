// Copyright (c) 2025 BVK Chaitanya

// Package memledger implements an in-memory ledger with the same offer and
// sequence number rules as the real network. Offers rest in the book and are
// never matched.
package memledger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MethodLoadAccount       = "LoadAccount"
	MethodGetOpenOffers     = "GetOpenOffers"
	MethodGetOrderBook      = "GetOrderBook"
	MethodGetRecentTrades   = "GetRecentTrades"
	MethodSubmitTransaction = "SubmitTransaction"
)

type account struct {
	id       string
	sequence int64
	balances map[asset.Asset]decimal.Decimal
}

type bookKey struct {
	selling asset.Asset
	buying  asset.Asset
}

type failure struct {
	skip  int
	count int
	err   error
}

type Ledger struct {
	mu sync.Mutex

	accounts map[string]*account

	offers      map[int64]*ledger.Offer
	nextOfferID int64

	// external holds order book levels of other market participants.
	external map[bookKey]*ledger.OrderBook

	trades map[bookKey][]*ledger.Trade

	failures map[string]*failure
	calls    map[string]int
}

var _ ledger.Client = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{
		accounts:    make(map[string]*account),
		offers:      make(map[int64]*ledger.Offer),
		nextOfferID: 1,
		external:    make(map[bookKey]*ledger.OrderBook),
		trades:      make(map[bookKey][]*ledger.Trade),
		failures:    make(map[string]*failure),
		calls:       make(map[string]int),
	}
}

// AccountID returns the account id for a secret. Secrets are strings that
// start with 'S' and the account id replaces the prefix with 'G'.
func AccountID(secret string) (string, error) {
	if len(secret) < 2 || secret[0] != 'S' || strings.ContainsAny(secret, " \t\n") {
		return "", fmt.Errorf("secret must start with 'S': %w", ledger.ErrMalformedCredential)
	}
	return "G" + secret[1:], nil
}

// AddAccount creates an account for the secret with the given sequence number
// and an empty native balance.
func (l *Ledger) AddAccount(secret string, sequence int64) (string, error) {
	id, err := AccountID(secret)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[id]; ok {
		return "", fmt.Errorf("account %q already exists: %w", id, os.ErrExist)
	}
	l.accounts[id] = &account{
		id:       id,
		sequence: sequence,
		balances: map[asset.Asset]decimal.Decimal{asset.Native: decimal.Zero},
	}
	return id, nil
}

// SetBalance sets the balance of an asset. Adding a credit asset balance also
// establishes the account's trust in the asset.
func (l *Ledger) SetBalance(id string, a asset.Asset, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("account %q: %w", id, ledger.ErrAccountNotFound)
	}
	acct.balances[a] = amount
	return nil
}

// SetOrderBook replaces the external order book levels for an asset pair.
// Amounts on both sides are in selling asset units.
func (l *Ledger) SetOrderBook(selling, buying asset.Asset, asks, bids []*ledger.PriceLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.external[bookKey{selling, buying}] = &ledger.OrderBook{
		Selling: selling,
		Buying:  buying,
		Asks:    slices.Clone(asks),
		Bids:    slices.Clone(bids),
	}
}

// AddTrade records an executed trade for the trade's base and counter assets.
func (l *Ledger) AddTrade(t *ledger.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := bookKey{t.Base, t.Counter}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	l.trades[key] = append(l.trades[key], t)
}

// FailCalls makes the method fail with err for count calls after skipping the
// next skip calls.
func (l *Ledger) FailCalls(method string, skip, count int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures[method] = &failure{skip: skip, count: count, err: err}
}

// Calls returns the number of calls made to a method.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.calls[method]
}

// Offer returns a copy of an open offer.
func (l *Ledger) Offer(id int64) (*ledger.Offer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.offers[id]
	if !ok {
		return nil, false
	}
	v := *o
	return &v, true
}

// Sequence returns the current sequence number of an account.
func (l *Ledger) Sequence(id string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[id]
	if !ok {
		return 0, fmt.Errorf("account %q: %w", id, ledger.ErrAccountNotFound)
	}
	return acct.sequence, nil
}

func (l *Ledger) enterLocked(ctx context.Context, method string) error {
	l.calls[method]++
	if err := context.Cause(ctx); err != nil {
		return err
	}
	f, ok := l.failures[method]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	if f.count > 0 {
		f.count--
		if f.count == 0 {
			delete(l.failures, method)
		}
		slog.Debug("injecting ledger failure", "method", method, "err", f.err)
		return f.err
	}
	return nil
}

func (l *Ledger) liabilitiesLocked(id string, a asset.Asset) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range l.offers {
		if o.Seller == id && o.Selling.Equal(a) {
			sum = sum.Add(o.Amount)
		}
	}
	return sum
}

func (l *Ledger) NewSigner(secret string) (ledger.Signer, error) {
	id, err := AccountID(secret)
	if err != nil {
		return nil, err
	}
	return &signer{account: id}, nil
}

func (l *Ledger) LoadAccount(ctx context.Context, id string) (*ledger.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enterLocked(ctx, MethodLoadAccount); err != nil {
		return nil, err
	}
	acct, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", id, ledger.ErrAccountNotFound)
	}
	v := &ledger.Account{
		ID:       acct.id,
		Sequence: acct.sequence,
	}
	for a, amount := range acct.balances {
		v.Balances = append(v.Balances, &ledger.Balance{
			Asset:              a,
			Amount:             amount,
			SellingLiabilities: l.liabilitiesLocked(id, a),
		})
	}
	slices.SortFunc(v.Balances, func(a, b *ledger.Balance) int {
		return strings.Compare(a.Asset.String(), b.Asset.String())
	})
	return v, nil
}

func (l *Ledger) GetOpenOffers(ctx context.Context, id string) ([]*ledger.Offer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enterLocked(ctx, MethodGetOpenOffers); err != nil {
		return nil, err
	}
	if _, ok := l.accounts[id]; !ok {
		return nil, fmt.Errorf("account %q: %w", id, ledger.ErrAccountNotFound)
	}
	var offers []*ledger.Offer
	for _, o := range l.offers {
		if o.Seller == id {
			v := *o
			offers = append(offers, &v)
		}
	}
	slices.SortFunc(offers, func(a, b *ledger.Offer) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return offers, nil
}

func (l *Ledger) GetOrderBook(ctx context.Context, selling, buying asset.Asset) (*ledger.OrderBook, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enterLocked(ctx, MethodGetOrderBook); err != nil {
		return nil, err
	}
	if selling.Equal(buying) {
		return nil, fmt.Errorf("order book needs two different assets: %w", ledger.ErrAssetMismatch)
	}

	book := &ledger.OrderBook{Selling: selling, Buying: buying}
	if ext, ok := l.external[bookKey{selling, buying}]; ok {
		book.Asks = append(book.Asks, clonePriceLevels(ext.Asks)...)
		book.Bids = append(book.Bids, clonePriceLevels(ext.Bids)...)
	}
	for _, o := range l.offers {
		switch {
		case o.Selling.Equal(selling) && o.Buying.Equal(buying):
			book.Asks = addLevel(book.Asks, o.Price, o.Amount)
		case o.Selling.Equal(buying) && o.Buying.Equal(selling):
			bid := o.Price.Invert()
			book.Bids = addLevel(book.Bids, bid, ledger.BidAmount(o.Amount, bid))
		}
	}
	slices.SortFunc(book.Asks, func(a, b *ledger.PriceLevel) int { return a.Price.Cmp(b.Price) })
	slices.SortFunc(book.Bids, func(a, b *ledger.PriceLevel) int { return b.Price.Cmp(a.Price) })
	return book, nil
}

func (l *Ledger) GetRecentTrades(ctx context.Context, base, counter asset.Asset) ([]*ledger.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enterLocked(ctx, MethodGetRecentTrades); err != nil {
		return nil, err
	}
	trades := l.trades[bookKey{base, counter}]
	result := make([]*ledger.Trade, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		v := *trades[i]
		result = append(result, &v)
	}
	return result, nil
}

func clonePriceLevels(levels []*ledger.PriceLevel) []*ledger.PriceLevel {
	var vs []*ledger.PriceLevel
	for _, l := range levels {
		v := *l
		vs = append(vs, &v)
	}
	return vs
}

func addLevel(levels []*ledger.PriceLevel, p ledger.Price, amount decimal.Decimal) []*ledger.PriceLevel {
	for _, l := range levels {
		if l.Price.Equal(p) {
			l.Amount = l.Amount.Add(amount)
			return levels
		}
	}
	return append(levels, &ledger.PriceLevel{Price: p, Amount: amount})
}
