// Copyright (c) 2025 BVK Chaitanya

package offer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/shopspring/decimal"
)

// Result is the outcome of one manage offer submission.
type Result struct {
	Kind Kind

	Selling asset.Asset
	Buying  asset.Asset
	Amount  decimal.Decimal
	Price   ledger.Price

	// OfferID is the ledger assigned id for creates and the target id for
	// amends and deletes.
	OfferID int64

	Success    bool
	ResultCode string
	Hash       string
	Reason     string

	// Error holds the failure message, if any.
	Error string

	Attempts int
	Time     time.Time

	err error
}

// Err returns the submission error, if any.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) setError(err error) {
	r.err = err
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
}

// Manager submits manage offer operations for one account. Every submission
// loads the account's sequence number immediately before building the
// transaction.
type Manager struct {
	client ledger.Client
	signer ledger.Signer
}

func NewManager(client ledger.Client, signer ledger.Signer) *Manager {
	return &Manager{
		client: client,
		signer: signer,
	}
}

func (m *Manager) Account() string {
	return m.signer.Account()
}

// Submit signs and submits a single operation transaction using a freshly
// loaded sequence number.
func (m *Manager) Submit(ctx context.Context, op ledger.Operation) (*ledger.SubmitResult, error) {
	acct, err := m.client.LoadAccount(ctx, m.signer.Account())
	if err != nil {
		return nil, fmt.Errorf("could not load sequence number: %w", err)
	}
	tx := &ledger.Transaction{
		Source:    acct.ID,
		Sequence:  acct.Sequence + 1,
		Operation: op,
	}
	stx, err := m.signer.Sign(tx)
	if err != nil {
		return nil, fmt.Errorf("could not sign transaction: %w", err)
	}
	return m.client.SubmitTransaction(ctx, stx)
}

// ManageOffer creates, amends or deletes an offer depending on the offer id
// and amount. A zero offer id creates a new offer; non-zero id with non-zero
// amount amends the offer; non-zero id with zero amount deletes it.
//
// Errors are returned as is and are also recorded in the result.
func (m *Manager) ManageOffer(ctx context.Context, selling, buying asset.Asset, amount decimal.Decimal, price ledger.Price, offerID int64) (*Result, error) {
	intent := &Intent{
		Selling: selling,
		Buying:  buying,
		Amount:  amount,
		Price:   price,
		OfferID: offerID,
	}
	return m.manage(ctx, intent)
}

func (m *Manager) manage(ctx context.Context, intent *Intent) (*Result, error) {
	result := &Result{
		Kind:    intent.Kind(),
		Selling: intent.Selling,
		Buying:  intent.Buying,
		Amount:  intent.Amount.Truncate(Precision),
		Price:   intent.Price,
		OfferID: intent.OfferID,
		Reason:  intent.Reason,
		Time:    time.Now(),
	}
	if err := intent.Check(); err != nil {
		result.setError(err)
		return result, err
	}

	op := &ledger.ManageOffer{
		Selling: result.Selling,
		Buying:  result.Buying,
		Amount:  result.Amount,
		Price:   result.Price,
		OfferID: result.OfferID,
	}
	result.Attempts++
	sres, err := m.Submit(ctx, op)
	if sres != nil {
		result.Success = sres.Success
		result.ResultCode = sres.ResultCode
		result.Hash = sres.Hash
		if result.Kind == Create && sres.OfferID != 0 {
			result.OfferID = sres.OfferID
		}
	}
	if err != nil {
		result.Success = false
		result.setError(err)
		slog.WarnContext(ctx, "manage offer failed", "account", m.Account(), "kind", result.Kind, "offer", result.OfferID, "code", result.ResultCode, "err", err)
		return result, err
	}
	slog.InfoContext(ctx, "manage offer succeeded", "account", m.Account(), "kind", result.Kind, "offer", result.OfferID,
		"selling", result.Selling, "buying", result.Buying, "amount", result.Amount, "price", result.Price)
	return result, nil
}

// Cancel deletes an open offer. Assets and price are taken from the open
// offers snapshot because the ledger requires the full offer to be
// re-specified. Returns ErrInvalidOfferID if the offer is not in the snapshot.
func (m *Manager) Cancel(ctx context.Context, offers []*ledger.Offer, offerID int64, reason string) (*Result, error) {
	o := ledger.FindOffer(offers, offerID)
	if offerID == 0 || o == nil {
		err := fmt.Errorf("offer %d is not an open offer of account %s: %w", offerID, m.Account(), ErrInvalidOfferID)
		result := &Result{
			Kind:    Delete,
			OfferID: offerID,
			Reason:  reason,
			Time:    time.Now(),
		}
		result.setError(err)
		return result, err
	}
	intent := &Intent{
		Selling: o.Selling,
		Buying:  o.Buying,
		Amount:  decimal.Zero,
		Price:   o.Price,
		OfferID: o.ID,
		Reason:  reason,
	}
	return m.manage(ctx, intent)
}

// Apply submits an intent. Delete intents are resolved through Cancel.
func (m *Manager) Apply(ctx context.Context, offers []*ledger.Offer, intent *Intent) (*Result, error) {
	if intent.OfferID != 0 && intent.Amount.IsZero() {
		return m.Cancel(ctx, offers, intent.OfferID, intent.Reason)
	}
	return m.manage(ctx, intent)
}
