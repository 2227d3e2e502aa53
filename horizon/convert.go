// Copyright (c) 2025 BVK Chaitanya

package horizon

import (
	"fmt"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// amountDigits is the number of decimal digits in ledger amounts.
const amountDigits = 7

func assetFromParts(typ, code, issuer string) (asset.Asset, error) {
	if typ == string(asset.KindNative) {
		return asset.Native, nil
	}
	if typ != string(asset.KindCredit4) && typ != string(asset.KindCredit12) {
		return asset.Asset{}, fmt.Errorf("unsupported asset type %q: %w", typ, ledger.ErrAssetMismatch)
	}
	a := asset.Credit(code, issuer)
	if err := a.Check(); err != nil {
		return asset.Asset{}, err
	}
	return a, nil
}

func assetType(a asset.Asset) horizonclient.AssetType {
	switch a.Kind() {
	case asset.KindCredit4:
		return horizonclient.AssetType4
	case asset.KindCredit12:
		return horizonclient.AssetType12
	}
	return horizonclient.AssetTypeNative
}

func txnAsset(a asset.Asset) txnbuild.Asset {
	if a.IsNative() {
		return txnbuild.NativeAsset{}
	}
	return txnbuild.CreditAsset{Code: a.Code, Issuer: a.Issuer}
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func formatAmount(d decimal.Decimal) string {
	return d.Truncate(amountDigits).StringFixed(amountDigits)
}

// bidLevel converts a horizon bid into selling asset units. Horizon reports
// bid amounts in the buying asset.
func bidLevel(n, d int32, amount string) (*ledger.PriceLevel, error) {
	v, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	p := ledger.Price{N: n, D: d}
	if err := p.Check(); err != nil {
		return nil, err
	}
	return &ledger.PriceLevel{Price: p, Amount: ledger.BidAmount(v, p)}, nil
}

func askLevel(n, d int32, amount string) (*ledger.PriceLevel, error) {
	v, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	p := ledger.Price{N: n, D: d}
	if err := p.Check(); err != nil {
		return nil, err
	}
	return &ledger.PriceLevel{Price: p, Amount: v}, nil
}

func toOperation(op ledger.Operation) (txnbuild.Operation, error) {
	switch v := op.(type) {
	case *ledger.ManageOffer:
		return &txnbuild.ManageSellOffer{
			Selling: txnAsset(v.Selling),
			Buying:  txnAsset(v.Buying),
			Amount:  formatAmount(v.Amount),
			Price:   xdr.Price{N: xdr.Int32(v.Price.N), D: xdr.Int32(v.Price.D)},
			OfferID: v.OfferID,
		}, nil
	case *ledger.Payment:
		return &txnbuild.Payment{
			Destination: v.Destination,
			Amount:      formatAmount(v.Amount),
			Asset:       txnAsset(v.Asset),
		}, nil
	case *ledger.CreateAccount:
		return &txnbuild.CreateAccount{
			Destination: v.Destination,
			Amount:      formatAmount(v.StartingBalance),
		}, nil
	}
	return nil, fmt.Errorf("unsupported operation %T: %w", op, ledger.ErrInvalidOperation)
}

// offerIDFromResult returns the offer id from the manage offer result in a
// base64 encoded transaction result. Returns false if the offer was deleted
// or the result has no offer entry.
func offerIDFromResult(resultXDR string) (int64, bool) {
	var result xdr.TransactionResult
	if err := xdr.SafeUnmarshalBase64(resultXDR, &result); err != nil {
		return 0, false
	}
	results, ok := result.OperationResults()
	if !ok || len(results) != 1 {
		return 0, false
	}
	tr, ok := results[0].GetTr()
	if !ok {
		return 0, false
	}
	manage, ok := tr.GetManageSellOfferResult()
	if !ok {
		return 0, false
	}
	success, ok := manage.GetSuccess()
	if !ok {
		return 0, false
	}
	entry, ok := success.Offer.GetOffer()
	if !ok {
		return 0, false
	}
	return int64(entry.OfferId), true
}
