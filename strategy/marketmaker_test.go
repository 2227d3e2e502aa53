// Copyright (c) 2025 BVK Chaitanya

package strategy

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/offer"
	"github.com/shopspring/decimal"
)

var usd = asset.Credit("USD", "GISSUERX")

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func level(n, dd int32, amount string) *ledger.PriceLevel {
	return &ledger.PriceLevel{Price: ledger.Price{N: n, D: dd}, Amount: d(amount)}
}

func newTestEvaluator(t *testing.T, mode Mode) (Evaluator, *Config) {
	cfg := &Config{
		Mode:     mode,
		Pair:     Pair{Selling: asset.Native, Buying: usd},
		Fraction: d("0.1"),
		Spread:   d("0.01"),
	}
	eval, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return eval, cfg
}

func newSnapshot(nativeBalance string, offers ...*ledger.Offer) *Snapshot {
	return &Snapshot{
		Account: "GALICE",
		Balances: []*ledger.Balance{
			{Asset: asset.Native, Amount: d(nativeBalance)},
			{Asset: usd, Amount: decimal.Zero},
		},
		Offers: offers,
		OrderBook: &ledger.OrderBook{
			Selling: asset.Native,
			Buying:  usd,
			Asks:    []*ledger.PriceLevel{level(11, 100, "500")},
			Bids:    []*ledger.PriceLevel{level(9, 100, "500")},
		},
		Time: time.Now(),
	}
}

func TestConfigCheck(t *testing.T) {
	cfg := &Config{Mode: Bid, Pair: Pair{Selling: asset.Native, Buying: usd}}
	cfg.SetDefaults()
	if err := cfg.Check(); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != DefaultName || !cfg.Fraction.Equal(d("0.1")) {
		t.Fatalf("wanted defaults, got %+v", cfg)
	}

	bad := cfg.Clone()
	bad.Pair.Buying = asset.Native
	if err := bad.Check(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for same assets, got %v", err)
	}
	bad = cfg.Clone()
	bad.Fraction = d("1.5")
	if err := bad.Check(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for fraction, got %v", err)
	}
	bad = cfg.Clone()
	bad.Mode = "sideways"
	if err := bad.Check(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for mode, got %v", err)
	}

	if _, err := New(&Config{Name: "nosuch", Mode: Bid, Pair: cfg.Pair}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("wanted ErrNotExist for unknown strategy, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	intents, err := eval.Evaluate(ctx, newSnapshot("1000"))
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 {
		t.Fatalf("wanted one intent, got %d", len(intents))
	}
	in := intents[0]
	if in.Kind() != offer.Create {
		t.Fatalf("wanted create, got %s", in.Kind())
	}
	if !in.Selling.Equal(asset.Native) || !in.Buying.Equal(usd) {
		t.Fatalf("wanted native/USD offer, got %s/%s", in.Selling, in.Buying)
	}
	if !in.Amount.Equal(d("100")) {
		t.Fatalf("wanted amount 100, got %s", in.Amount)
	}
	// Midpoint 0.10 with 1% spread.
	if !in.Price.Decimal().Equal(d("0.101")) {
		t.Fatalf("wanted price 0.101, got %s", in.Price.Decimal())
	}
}

func TestAskSide(t *testing.T) {
	ctx := context.Background()
	eval, cfg := newTestEvaluator(t, Ask)

	selling, buying := cfg.Side()
	if !selling.Equal(usd) || !buying.Equal(asset.Native) {
		t.Fatalf("wanted ask side to sell USD for native, got %s/%s", selling, buying)
	}

	snap := newSnapshot("1000")
	snap.Balances[1].Amount = d("50")
	snap.OrderBook = &ledger.OrderBook{
		Selling: usd,
		Buying:  asset.Native,
		Asks:    []*ledger.PriceLevel{level(11, 1, "10")},
		Bids:    []*ledger.PriceLevel{level(9, 1, "10")},
	}
	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || intents[0].Kind() != offer.Create || !intents[0].Amount.Equal(d("5")) {
		t.Fatalf("wanted create of 5 USD, got %v", intents)
	}
}

func TestSteadyState(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	price, _ := ledger.PriceFromDecimal(d("0.101"))
	mine := &ledger.Offer{ID: 7, Selling: asset.Native, Buying: usd, Amount: d("100"), Price: price}
	snap := newSnapshot("1000", mine)
	snap.Balances[0].SellingLiabilities = d("100")
	// Our own offer is part of the book and must not move the midpoint.
	snap.OrderBook.Asks = []*ledger.PriceLevel{level(101, 1000, "100"), level(11, 100, "500")}

	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 0 {
		t.Fatalf("wanted no intents in steady state, got %v", intents)
	}
}

func TestAmendOnDrift(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	mine := &ledger.Offer{ID: 7, Selling: asset.Native, Buying: usd, Amount: d("100"), Price: ledger.Price{N: 101, D: 1000}}
	snap := newSnapshot("1000", mine)
	snap.OrderBook.Asks = []*ledger.PriceLevel{level(13, 100, "500")}
	snap.OrderBook.Bids = []*ledger.PriceLevel{level(11, 100, "500")}

	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 {
		t.Fatalf("wanted one intent, got %d", len(intents))
	}
	in := intents[0]
	if in.Kind() != offer.Amend || in.OfferID != 7 {
		t.Fatalf("wanted amend of offer 7, got %s", in)
	}
	if !in.Amount.Equal(d("100")) {
		t.Fatalf("wanted amount to stay 100, got %s", in.Amount)
	}
	if !in.Price.Decimal().Equal(d("0.1212")) {
		t.Fatalf("wanted price 0.1212, got %s", in.Price.Decimal())
	}
}

func TestZeroBalanceCancels(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	mine := &ledger.Offer{ID: 7, Selling: asset.Native, Buying: usd, Amount: d("100"), Price: ledger.Price{N: 101, D: 1000}}
	snap := newSnapshot("0", mine)
	// Market moved too; zero balance must still cancel instead of amending.
	snap.OrderBook.Asks = []*ledger.PriceLevel{level(2, 1, "500")}

	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || intents[0].Kind() != offer.Delete || intents[0].OfferID != 7 {
		t.Fatalf("wanted cancel of offer 7, got %v", intents)
	}

	// Missing balance is the same as zero.
	snap.Balances = nil
	intents, err = eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || intents[0].Kind() != offer.Delete {
		t.Fatalf("wanted cancel, got %v", intents)
	}

	// Balance below the offer amount.
	snap = newSnapshot("50", mine)
	intents, err = eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || intents[0].Kind() != offer.Delete {
		t.Fatalf("wanted cancel, got %v", intents)
	}
}

func TestDuplicateOffers(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	price, _ := ledger.PriceFromDecimal(d("0.101"))
	a := &ledger.Offer{ID: 3, Selling: asset.Native, Buying: usd, Amount: d("100"), Price: price}
	b := &ledger.Offer{ID: 9, Selling: asset.Native, Buying: usd, Amount: d("100"), Price: price}
	other := &ledger.Offer{ID: 5, Selling: usd, Buying: asset.Native, Amount: d("1"), Price: price}
	snap := newSnapshot("1000", b, other, a)

	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || intents[0].Kind() != offer.Delete || intents[0].OfferID != 9 {
		t.Fatalf("wanted cancel of the newer duplicate, got %v", intents)
	}
}

func TestNoReference(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	snap := newSnapshot("1000")
	snap.OrderBook.Asks, snap.OrderBook.Bids = nil, nil
	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 0 {
		t.Fatalf("wanted no intents without a reference price, got %v", intents)
	}

	// Recent trade is the fallback reference.
	snap.Trades = []*ledger.Trade{{
		Base:          asset.Native,
		Counter:       usd,
		BaseAmount:    d("10"),
		CounterAmount: d("2"),
	}}
	intents, err = eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || !intents[0].Price.Decimal().Equal(d("0.202")) {
		t.Fatalf("wanted create at 0.202, got %v", intents)
	}
}

func TestVolatilityHold(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Mode:          Bid,
		Pair:          Pair{Selling: asset.Native, Buying: usd},
		MaxVolatility: d("0.05"),
	}
	eval, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	snap := newSnapshot("1000")
	snap.Trades = []*ledger.Trade{
		{Base: asset.Native, Counter: usd, BaseAmount: d("10"), CounterAmount: d("1")},
		{Base: asset.Native, Counter: usd, BaseAmount: d("10"), CounterAmount: d("2")},
	}
	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 0 {
		t.Fatalf("wanted no intents in a volatile market, got %v", intents)
	}
}

func TestNativeReserve(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Mode:          Bid,
		Pair:          Pair{Selling: asset.Native, Buying: usd},
		Fraction:      d("0.5"),
		NativeReserve: d("200"),
		MinAmount:     d("1"),
	}
	eval, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	intents, err := eval.Evaluate(ctx, newSnapshot("1000"))
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || !intents[0].Amount.Equal(d("400")) {
		t.Fatalf("wanted create of 400, got %v", intents)
	}

	intents, err = eval.Evaluate(ctx, newSnapshot("201"))
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 0 {
		t.Fatalf("wanted no create below minimum amount, got %v", intents)
	}
}

func TestRepeatingReferencePrice(t *testing.T) {
	ctx := context.Background()

	checkCreate := func(eval Evaluator, snap *Snapshot, exact decimal.Decimal) {
		t.Helper()
		intents, err := eval.Evaluate(ctx, snap)
		if err != nil {
			t.Fatalf("wanted a create for reference %s, got error %v", exact, err)
		}
		if len(intents) != 1 || intents[0].Kind() != offer.Create {
			t.Fatalf("wanted exactly one create, got %v", intents)
		}
		if diff := intents[0].Price.Decimal().Sub(exact).Abs(); diff.GreaterThan(d("0.0000001")) {
			t.Fatalf("wanted price close to %s, got %s", exact, intents[0].Price)
		}
	}

	// One-sided book at 100/3 with the default 1% spread.
	eval, _ := newTestEvaluator(t, Bid)
	snap := newSnapshot("1000")
	snap.OrderBook.Asks = []*ledger.PriceLevel{level(100, 3, "500")}
	snap.OrderBook.Bids = nil
	checkCreate(eval, snap, d("101").Div(d("3")))

	// Two-sided book at 1/3 and 1/7 with a spread of 0.25%.
	cfg := &Config{
		Mode:     Bid,
		Pair:     Pair{Selling: asset.Native, Buying: usd},
		Fraction: d("0.1"),
		Spread:   d("0.0025"),
	}
	eval, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	snap = newSnapshot("1000")
	snap.OrderBook.Asks = []*ledger.PriceLevel{level(1, 3, "500")}
	snap.OrderBook.Bids = []*ledger.PriceLevel{level(1, 7, "500")}
	// (1/3 + 1/7) / 2 * 1.0025 = 401/1680
	checkCreate(eval, snap, d("401").Div(d("1680")))

	// Recent trade fallback at 100/3.
	eval, _ = newTestEvaluator(t, Bid)
	snap = newSnapshot("1000")
	snap.OrderBook.Asks, snap.OrderBook.Bids = nil, nil
	snap.Trades = []*ledger.Trade{{
		Base:          asset.Native,
		Counter:       usd,
		BaseAmount:    d("3"),
		CounterAmount: d("100"),
	}}
	checkCreate(eval, snap, d("101").Div(d("3")))
}

func TestOwnBidExcluded(t *testing.T) {
	ctx := context.Background()
	eval, _ := newTestEvaluator(t, Bid)

	// Account also offers 10 USD at 100/9 native per USD. In the native/USD
	// book it is a bid of 111.1111111 native at 9/100.
	opposite := &ledger.Offer{ID: 3, Selling: usd, Buying: asset.Native, Amount: d("10"), Price: ledger.Price{N: 100, D: 9}}
	snap := newSnapshot("1000", opposite)
	snap.OrderBook.Bids = []*ledger.PriceLevel{
		level(9, 100, "111.1111111"),
		level(8, 100, "500"),
	}

	intents, err := eval.Evaluate(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	// Midpoint of 0.11 and 0.08 with 1% spread.
	want, err := ledger.PriceFromDecimal(d("0.095").Mul(d("1.01")))
	if err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 || intents[0].Kind() != offer.Create || !intents[0].Price.Equal(want) {
		t.Fatalf("wanted create at %s ignoring our own bid, got %v", want, intents)
	}
}
