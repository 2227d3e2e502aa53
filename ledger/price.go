// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	stellarprice "github.com/stellar/go/price"
)

// Price is an exact rational number of buying units per one selling unit.
// Numerator and denominator are limited to int32 as on the ledger.
type Price struct {
	N int32
	D int32
}

func NewPrice(n, d int32) (Price, error) {
	p := Price{N: n, D: d}
	if err := p.Check(); err != nil {
		return Price{}, err
	}
	return p, nil
}

// PriceDigits is the number of fractional digits kept when a decimal price
// is converted into a rational.
const PriceDigits = 7

// maxPriceLength is the longest decimal string accepted by the stellar price
// parser.
const maxPriceLength = 20

// PriceFromDecimal converts a decimal value into the closest rational with
// int32 numerator and denominator. The value is rounded to PriceDigits
// fractional digits, or fewer when the integer part is large.
func PriceFromDecimal(d decimal.Decimal) (Price, error) {
	if !d.IsPositive() {
		return Price{}, fmt.Errorf("price %s must be positive: %w", d, os.ErrInvalid)
	}
	places := int32(PriceDigits)
	if n := len(d.Truncate(0).String()) + 1 + PriceDigits; n > maxPriceLength {
		places -= int32(n - maxPriceLength)
	}
	if places < 0 {
		return Price{}, fmt.Errorf("price %s is too large: %w", d, os.ErrInvalid)
	}
	v := d.Round(places)
	if !v.IsPositive() {
		return Price{}, fmt.Errorf("price %s is too small: %w", d, os.ErrInvalid)
	}
	xp, err := stellarprice.Parse(v.String())
	if err != nil {
		return Price{}, fmt.Errorf("could not convert %s to a rational price: %w", d, err)
	}
	return NewPrice(int32(xp.N), int32(xp.D))
}

// ParsePrice parses "N/D" or a decimal string.
func ParsePrice(s string) (Price, error) {
	if ns, ds, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(ns), 10, 32)
		if err != nil {
			return Price{}, fmt.Errorf("invalid price numerator %q: %w", ns, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(ds), 10, 32)
		if err != nil {
			return Price{}, fmt.Errorf("invalid price denominator %q: %w", ds, err)
		}
		return NewPrice(int32(n), int32(d))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return PriceFromDecimal(d)
}

func (p Price) Check() error {
	if p.N <= 0 || p.D <= 0 {
		return fmt.Errorf("price %d/%d must have positive numerator and denominator: %w", p.N, p.D, os.ErrInvalid)
	}
	return nil
}

func (p Price) IsZero() bool {
	return p.N == 0
}

// Cmp compares two prices exactly using cross multiplication.
func (p Price) Cmp(q Price) int {
	a := int64(p.N) * int64(q.D)
	b := int64(q.N) * int64(p.D)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal returns true if both prices represent the same rational value, so
// 2/1 and 4/2 are equal.
func (p Price) Equal(q Price) bool {
	return p.Cmp(q) == 0
}

func (p Price) Rat() *big.Rat {
	return big.NewRat(int64(p.N), int64(p.D))
}

// Decimal returns the price as a decimal. Result may be rounded for
// non-terminating fractions.
func (p Price) Decimal() decimal.Decimal {
	if p.D == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt32(p.N).Div(decimal.NewFromInt32(p.D))
}

// Invert returns the price of the opposite direction.
func (p Price) Invert() Price {
	return Price{N: p.D, D: p.N}
}

func (p Price) String() string {
	return fmt.Sprintf("%d/%d", p.N, p.D)
}
