// Copyright (c) 2025 BVK Chaitanya

package horizon

import (
	"fmt"

	"github.com/bvk/makerbot/ledger"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
)

// txTimeout is the validity window of a signed transaction in seconds.
const txTimeout = 300

type signer struct {
	kp         *keypair.Full
	passphrase string
}

func (s *signer) Account() string {
	return s.kp.Address()
}

// Sign builds a single operation transaction envelope and signs it with the
// account key.
func (s *signer) Sign(tx *ledger.Transaction) (*ledger.SignedTransaction, error) {
	if tx.Source != s.kp.Address() {
		return nil, fmt.Errorf("transaction source %q is not the signer account %q: %w", tx.Source, s.kp.Address(), ledger.ErrInvalidOperation)
	}
	op, err := toOperation(tx.Operation)
	if err != nil {
		return nil, err
	}

	source := txnbuild.NewSimpleAccount(tx.Source, tx.Sequence-1)
	params := txnbuild.TransactionParams{
		SourceAccount:        &source,
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(txTimeout),
		},
	}
	txn, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("could not build transaction: %w: %w", ledger.ErrInvalidOperation, err)
	}
	signed, err := txn.Sign(s.passphrase, s.kp)
	if err != nil {
		return nil, fmt.Errorf("could not sign transaction: %w", err)
	}
	envelope, err := signed.Base64()
	if err != nil {
		return nil, fmt.Errorf("could not encode transaction envelope: %w", err)
	}

	stx := &ledger.SignedTransaction{
		Transaction: *tx,
		Signer:      s.kp.Address(),
		Envelope:    envelope,
	}
	return stx, nil
}
