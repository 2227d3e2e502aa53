// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPrice(t *testing.T) {
	two, err := NewPrice(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !two.Equal(Price{N: 4, D: 2}) {
		t.Fatalf("wanted 2/1 == 4/2")
	}
	if two.Cmp(Price{N: 3, D: 2}) <= 0 {
		t.Fatalf("wanted 2/1 > 3/2")
	}
	if _, err := NewPrice(0, 1); err == nil {
		t.Fatalf("wanted error for zero price")
	}
	if _, err := NewPrice(1, -3); err == nil {
		t.Fatalf("wanted error for negative denominator")
	}

	p, err := PriceFromDecimal(decimal.RequireFromString("0.25"))
	if err != nil {
		t.Fatal(err)
	}
	if !p.Equal(Price{N: 1, D: 4}) {
		t.Fatalf("wanted 1/4, got %s", p)
	}
	if v := p.Decimal(); !v.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("wanted 0.25, got %s", v)
	}
	if inv := p.Invert(); !inv.Equal(Price{N: 4, D: 1}) {
		t.Fatalf("wanted 4/1, got %s", inv)
	}

	if q, err := ParsePrice("3/7"); err != nil || q != (Price{N: 3, D: 7}) {
		t.Fatalf("wanted 3/7, got %v, %v", q, err)
	}
	if q, err := ParsePrice("2"); err != nil || !q.Equal(two) {
		t.Fatalf("wanted 2/1, got %v, %v", q, err)
	}
}

func TestPriceFromRepeatingDecimal(t *testing.T) {
	spread := decimal.RequireFromString("1.01")
	for _, ref := range []Price{{N: 100, D: 3}, {N: 1, D: 3}, {N: 1, D: 7}, {N: 22, D: 7}} {
		target := ref.Decimal().Mul(spread)
		p, err := PriceFromDecimal(target)
		if err != nil {
			t.Fatalf("wanted %s * 1.01 to convert, got %v", ref, err)
		}
		if diff := p.Decimal().Sub(target).Abs(); diff.GreaterThan(decimal.New(1, -PriceDigits)) {
			t.Fatalf("wanted %s within ledger precision of %s, off by %s", p, target, diff)
		}
	}
	if _, err := PriceFromDecimal(decimal.RequireFromString("0.00000001")); err == nil {
		t.Fatalf("wanted prices below ledger precision to fail")
	}
}

func TestMidpoint(t *testing.T) {
	book := &OrderBook{
		Asks: []*PriceLevel{{Price: Price{N: 11, D: 100}, Amount: decimal.NewFromInt(10)}},
		Bids: []*PriceLevel{{Price: Price{N: 9, D: 100}, Amount: decimal.NewFromInt(10)}},
	}
	mid, ok := book.Midpoint()
	if !ok || !mid.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("wanted 0.1, got %s", mid)
	}

	book.Bids = nil
	if mid, ok := book.Midpoint(); !ok || !mid.Equal(decimal.RequireFromString("0.11")) {
		t.Fatalf("wanted 0.11, got %s", mid)
	}

	book.Asks = nil
	if _, ok := book.Midpoint(); ok {
		t.Fatalf("wanted no midpoint for an empty book")
	}
}

func TestClassify(t *testing.T) {
	tests := map[error]Class{
		fmt.Errorf("load: %w", ErrTransient):         Transient,
		context.DeadlineExceeded:                      Transient,
		errors.New("connection reset"):                Transient,
		fmt.Errorf("tx_bad_seq: %w", ErrBadSequence):  Conflict,
		ErrOfferNotFound:                              Conflict,
		ErrInvalidOfferID:                             Validation,
		fmt.Errorf("x: %w", ErrInsufficientBalance):   Validation,
		ErrAssetMismatch:                              Validation,
		ErrAccountNotFound:                            Fatal,
		fmt.Errorf("seed: %w", ErrMalformedCredential): Fatal,
	}
	for err, want := range tests {
		if got := Classify(err); got != want {
			t.Fatalf("%v: wanted %s, got %s", err, want, got)
		}
	}
}

func TestAvailable(t *testing.T) {
	b := &Balance{
		Amount:             decimal.NewFromInt(100),
		SellingLiabilities: decimal.NewFromInt(30),
	}
	if v := b.Available(); !v.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("wanted 70, got %s", v)
	}
	var nb *Balance
	if v := nb.Available(); !v.IsZero() {
		t.Fatalf("wanted zero for missing balance, got %s", v)
	}
}

type blockingClient struct {
	Client
}

func (blockingClient) LoadAccount(ctx context.Context, id string) (*Account, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	c := WithTimeout(blockingClient{}, 10*time.Millisecond)
	_, err := c.LoadAccount(context.Background(), "GALICE")
	if !errors.Is(err, context.DeadlineExceeded) || Classify(err) != Transient {
		t.Fatalf("wanted a transient deadline error, got %v (%v)", err, Classify(err))
	}
	if WithTimeout(blockingClient{}, 0) != (blockingClient{}) {
		t.Fatalf("wanted zero timeout to return the client unchanged")
	}
}
