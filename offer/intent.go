// Copyright (c) 2025 BVK Chaitanya

// Package offer implements the order model on top of the ledger's single
// manage offer primitive.
package offer

import (
	"fmt"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits supported by the ledger for
// amounts.
const Precision = 7

type Kind string

const (
	Create Kind = "create"
	Amend  Kind = "amend"
	Delete Kind = "delete"
)

var (
	ErrInvalidOfferID   = ledger.ErrInvalidOfferID
	ErrZeroAmountCreate = fmt.Errorf("offer id 0 with zero amount: %w", ledger.ErrInvalidOperation)
)

// KindOf returns the lifecycle transition encoded by an offer id and amount.
func KindOf(offerID int64, amount decimal.Decimal) (Kind, error) {
	switch {
	case offerID < 0:
		return "", fmt.Errorf("offer id %d cannot be negative: %w", offerID, ErrInvalidOfferID)
	case amount.IsNegative():
		return "", fmt.Errorf("offer amount %s cannot be negative: %w", amount, ledger.ErrInvalidOperation)
	case offerID == 0 && amount.IsZero():
		return "", ErrZeroAmountCreate
	case offerID == 0:
		return Create, nil
	case amount.IsZero():
		return Delete, nil
	}
	return Amend, nil
}

// Intent is a desired manage offer operation. Cancel intents only need the
// offer id; assets and price are resolved from the open offers snapshot.
type Intent struct {
	Selling asset.Asset
	Buying  asset.Asset
	Amount  decimal.Decimal
	Price   ledger.Price
	OfferID int64

	// Reason is a short human readable explanation of the decision.
	Reason string
}

func NewCreate(selling, buying asset.Asset, amount decimal.Decimal, price ledger.Price, reason string) *Intent {
	return &Intent{
		Selling: selling,
		Buying:  buying,
		Amount:  amount,
		Price:   price,
		Reason:  reason,
	}
}

func NewAmend(o *ledger.Offer, amount decimal.Decimal, price ledger.Price, reason string) *Intent {
	return &Intent{
		Selling: o.Selling,
		Buying:  o.Buying,
		Amount:  amount,
		Price:   price,
		OfferID: o.ID,
		Reason:  reason,
	}
}

func NewCancel(offerID int64, reason string) *Intent {
	return &Intent{
		OfferID: offerID,
		Reason:  reason,
	}
}

func (v *Intent) Kind() Kind {
	k, _ := KindOf(v.OfferID, v.Amount)
	return k
}

func (v *Intent) Check() error {
	kind, err := KindOf(v.OfferID, v.Amount)
	if err != nil {
		return err
	}
	if kind == Delete {
		return nil
	}
	if v.Selling.Equal(v.Buying) {
		return fmt.Errorf("selling and buying assets are both %s: %w", v.Selling, ledger.ErrAssetMismatch)
	}
	if err := v.Price.Check(); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrInvalidOperation, err)
	}
	if !v.Amount.Truncate(Precision).IsPositive() {
		return fmt.Errorf("amount %s is below ledger precision: %w", v.Amount, ledger.ErrInvalidOperation)
	}
	return nil
}

func (v *Intent) String() string {
	switch v.Kind() {
	case Delete:
		return fmt.Sprintf("delete offer %d", v.OfferID)
	case Amend:
		return fmt.Sprintf("amend offer %d to sell %s %s for %s at %s", v.OfferID, v.Amount, v.Selling, v.Buying, v.Price)
	}
	return fmt.Sprintf("create offer to sell %s %s for %s at %s", v.Amount, v.Selling, v.Buying, v.Price)
}
