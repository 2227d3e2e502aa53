// Copyright (c) 2025 BVK Chaitanya

// Package ledger defines the data model and the client interface for the
// distributed ledger exchange.
//
// Every transaction carries exactly one operation. ManageOffer is the single
// primitive for the offer lifecycle:
//
//   - OfferID == 0 creates a new offer; the ledger assigns a non-zero id.
//   - OfferID != 0 and Amount > 0 amends the existing offer in place.
//   - OfferID != 0 and Amount == 0 deletes the offer.
package ledger

import (
	"context"

	"github.com/bvk/makerbot/asset"
	"github.com/shopspring/decimal"
)

type Client interface {
	// NewSigner parses a secret credential. Returns ErrMalformedCredential if
	// the secret cannot be used for signing.
	NewSigner(secret string) (Signer, error)

	LoadAccount(ctx context.Context, id string) (*Account, error)
	GetOpenOffers(ctx context.Context, id string) ([]*Offer, error)
	GetOrderBook(ctx context.Context, selling, buying asset.Asset) (*OrderBook, error)
	GetRecentTrades(ctx context.Context, base, counter asset.Asset) ([]*Trade, error)

	// SubmitTransaction submits a signed transaction. Failed transactions
	// return a non-nil result along with an error describing the failure.
	SubmitTransaction(ctx context.Context, tx *SignedTransaction) (*SubmitResult, error)
}

// Signer holds a signing credential in memory.
type Signer interface {
	// Account returns the public id of the account for the credential.
	Account() string

	Sign(tx *Transaction) (*SignedTransaction, error)
}

type Operation interface {
	OperationType() string
}

type CreateAccount struct {
	Destination     string
	StartingBalance decimal.Decimal
}

type Payment struct {
	Destination string
	Asset       asset.Asset
	Amount      decimal.Decimal
}

type ManageOffer struct {
	Selling asset.Asset
	Buying  asset.Asset
	Amount  decimal.Decimal
	Price   Price
	OfferID int64
}

func (*CreateAccount) OperationType() string { return "create_account" }
func (*Payment) OperationType() string       { return "payment" }
func (*ManageOffer) OperationType() string   { return "manage_sell_offer" }

type Transaction struct {
	Source string

	// Sequence must be one more than the account's current sequence number.
	Sequence int64

	Operation Operation
}

type SignedTransaction struct {
	Transaction

	// Signer is the account id of the signing credential.
	Signer string

	// Envelope holds the encoded signed transaction in the ledger's wire
	// format, if any.
	Envelope string
}

type SubmitResult struct {
	Success    bool
	ResultCode string
	Hash       string

	// OfferID is the offer id assigned or updated by a manage offer operation.
	OfferID int64
}
