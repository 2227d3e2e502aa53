// Copyright (c) 2025 BVK Chaitanya

package memledger

import (
	"context"
	"fmt"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type signer struct {
	account string
}

func (s *signer) Account() string {
	return s.account
}

func (s *signer) Sign(tx *ledger.Transaction) (*ledger.SignedTransaction, error) {
	if tx.Source != s.account {
		return nil, fmt.Errorf("transaction source %q is not the signer account %q: %w", tx.Source, s.account, ledger.ErrInvalidOperation)
	}
	stx := &ledger.SignedTransaction{
		Transaction: *tx,
		Signer:      s.account,
		Envelope:    uuid.NewString(),
	}
	return stx, nil
}

func (l *Ledger) SubmitTransaction(ctx context.Context, stx *ledger.SignedTransaction) (*ledger.SubmitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.enterLocked(ctx, MethodSubmitTransaction); err != nil {
		return nil, err
	}

	result := &ledger.SubmitResult{Hash: stx.Envelope}
	acct, ok := l.accounts[stx.Source]
	if !ok {
		result.ResultCode = "tx_no_source_account"
		return result, fmt.Errorf("source account %q: %w", stx.Source, ledger.ErrAccountNotFound)
	}
	if stx.Signer != stx.Source {
		result.ResultCode = "tx_bad_auth"
		return result, fmt.Errorf("transaction is not signed by the source account: %w", ledger.ErrMalformedCredential)
	}
	if stx.Sequence != acct.sequence+1 {
		result.ResultCode = "tx_bad_seq"
		return result, fmt.Errorf("want sequence %d, got %d: %w", acct.sequence+1, stx.Sequence, ledger.ErrBadSequence)
	}

	// Sequence number is consumed even when the operation fails.
	acct.sequence = stx.Sequence

	var err error
	switch op := stx.Operation.(type) {
	case *ledger.ManageOffer:
		result.OfferID, result.ResultCode, err = l.manageOfferLocked(acct, op)
	case *ledger.Payment:
		result.ResultCode, err = l.paymentLocked(acct, op)
	case *ledger.CreateAccount:
		result.ResultCode, err = l.createAccountLocked(acct, op)
	default:
		result.ResultCode, err = "op_not_supported", fmt.Errorf("operation %T: %w", op, ledger.ErrInvalidOperation)
	}
	if err != nil {
		return result, err
	}
	result.Success = true
	return result, nil
}

func (l *Ledger) manageOfferLocked(acct *account, op *ledger.ManageOffer) (int64, string, error) {
	if op.Selling.Equal(op.Buying) {
		return 0, "op_malformed", fmt.Errorf("selling and buying assets are the same: %w", ledger.ErrAssetMismatch)
	}
	if op.Amount.IsNegative() {
		return 0, "op_malformed", fmt.Errorf("negative offer amount: %w", ledger.ErrInvalidOperation)
	}
	if op.OfferID == 0 && op.Amount.IsZero() {
		return 0, "op_malformed", fmt.Errorf("new offer must have a non-zero amount: %w", ledger.ErrInvalidOperation)
	}
	if !op.Amount.IsZero() {
		if err := op.Price.Check(); err != nil {
			return 0, "op_malformed", fmt.Errorf("%w: %w", ledger.ErrInvalidOperation, err)
		}
	}

	var existing *ledger.Offer
	if op.OfferID != 0 {
		o, ok := l.offers[op.OfferID]
		if !ok || o.Seller != acct.id {
			return 0, "op_not_found", fmt.Errorf("offer %d: %w", op.OfferID, ledger.ErrOfferNotFound)
		}
		if !o.Selling.Equal(op.Selling) || !o.Buying.Equal(op.Buying) {
			return 0, "op_malformed", fmt.Errorf("offer %d assets cannot change: %w", op.OfferID, ledger.ErrAssetMismatch)
		}
		existing = o
	}

	if op.Amount.IsZero() {
		delete(l.offers, existing.ID)
		return existing.ID, "op_success", nil
	}

	if !op.Buying.IsNative() {
		if _, ok := acct.balances[op.Buying]; !ok {
			return 0, "op_buy_no_trust", fmt.Errorf("account does not trust %s: %w", op.Buying, ledger.ErrAssetMismatch)
		}
	}
	balance, ok := acct.balances[op.Selling]
	if !ok {
		return 0, "op_sell_no_trust", fmt.Errorf("account does not hold %s: %w", op.Selling, ledger.ErrAssetMismatch)
	}
	locked := l.liabilitiesLocked(acct.id, op.Selling)
	if existing != nil {
		locked = locked.Sub(existing.Amount)
	}
	if balance.Sub(locked).LessThan(op.Amount) {
		return 0, "op_underfunded", fmt.Errorf("need %s %s, available %s: %w", op.Amount, op.Selling, balance.Sub(locked), ledger.ErrInsufficientBalance)
	}

	if existing != nil {
		existing.Amount = op.Amount
		existing.Price = op.Price
		return existing.ID, "op_success", nil
	}

	id := l.nextOfferID
	l.nextOfferID++
	l.offers[id] = &ledger.Offer{
		ID:      id,
		Seller:  acct.id,
		Selling: op.Selling,
		Buying:  op.Buying,
		Amount:  op.Amount,
		Price:   op.Price,
	}
	return id, "op_success", nil
}

func (l *Ledger) paymentLocked(acct *account, op *ledger.Payment) (string, error) {
	if !op.Amount.IsPositive() {
		return "op_malformed", fmt.Errorf("payment amount must be positive: %w", ledger.ErrInvalidOperation)
	}
	dest, ok := l.accounts[op.Destination]
	if !ok {
		return "op_no_destination", fmt.Errorf("destination %q: %w", op.Destination, ledger.ErrInvalidOperation)
	}
	if _, ok := dest.balances[op.Asset]; !ok {
		return "op_no_trust", fmt.Errorf("destination does not trust %s: %w", op.Asset, ledger.ErrAssetMismatch)
	}
	if err := l.debitLocked(acct, op.Asset, op.Amount); err != nil {
		return "op_underfunded", err
	}
	dest.balances[op.Asset] = dest.balances[op.Asset].Add(op.Amount)
	return "op_success", nil
}

func (l *Ledger) createAccountLocked(acct *account, op *ledger.CreateAccount) (string, error) {
	if !op.StartingBalance.IsPositive() {
		return "op_malformed", fmt.Errorf("starting balance must be positive: %w", ledger.ErrInvalidOperation)
	}
	if _, ok := l.accounts[op.Destination]; ok {
		return "op_already_exists", fmt.Errorf("account %q already exists: %w", op.Destination, ledger.ErrInvalidOperation)
	}
	if err := l.debitLocked(acct, asset.Native, op.StartingBalance); err != nil {
		return "op_underfunded", err
	}
	l.accounts[op.Destination] = &account{
		id:       op.Destination,
		sequence: 0,
		balances: map[asset.Asset]decimal.Decimal{asset.Native: op.StartingBalance},
	}
	return "op_success", nil
}

func (l *Ledger) debitLocked(acct *account, a asset.Asset, amount decimal.Decimal) error {
	balance, ok := acct.balances[a]
	if !ok {
		return fmt.Errorf("account does not hold %s: %w", a, ledger.ErrInsufficientBalance)
	}
	available := balance.Sub(l.liabilitiesLocked(acct.id, a))
	if available.LessThan(amount) {
		return fmt.Errorf("need %s %s, available %s: %w", amount, a, available, ledger.ErrInsufficientBalance)
	}
	acct.balances[a] = balance.Sub(amount)
	return nil
}
