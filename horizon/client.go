// Copyright (c) 2025 BVK Chaitanya

// Package horizon implements the ledger client over a Stellar horizon server.
package horizon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"golang.org/x/time/rate"
)

type Client struct {
	opts Options

	client *http.Client

	limiter *rate.Limiter
}

var _ ledger.Client = &Client{}

// New creates a ledger client for a horizon server.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("invalid horizon url %q: %w", opts.URL, err)
	}

	c := &Client{
		opts: *opts,
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
	return c, nil
}

// ctxDoer binds the horizonclient requests to the caller's context.
type ctxDoer struct {
	ctx    context.Context
	client *http.Client
}

func (d *ctxDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.WithContext(d.ctx))
}

func (d *ctxDoer) Get(u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return d.client.Do(req)
}

func (d *ctxDoer) PostForm(u string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, u, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return d.client.Do(req)
}

// horizon waits for the rate limiter and returns a horizonclient bound to the
// context.
func (c *Client) horizon(ctx context.Context) (*horizonclient.Client, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("rate limiter: %w", ledger.ErrTransient)
	}
	hc := &horizonclient.Client{
		HorizonURL: c.opts.URL,
		HTTP:       &ctxDoer{ctx: ctx, client: c.client},
		AppName:    "makerbot",
	}
	return hc, nil
}

func (c *Client) NewSigner(secret string) (ledger.Signer, error) {
	kp, err := keypair.ParseFull(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("could not parse secret seed: %w", ledger.ErrMalformedCredential)
	}
	return &signer{kp: kp, passphrase: c.opts.Passphrase}, nil
}

func (c *Client) LoadAccount(ctx context.Context, id string) (*ledger.Account, error) {
	hc, err := c.horizon(ctx)
	if err != nil {
		return nil, err
	}
	account, err := hc.AccountDetail(horizonclient.AccountRequest{AccountID: id})
	if err != nil {
		return nil, wrapError(ctx, fmt.Sprintf("could not load account %q", id), err)
	}
	return toAccount(&account), nil
}

func toAccount(a *hProtocol.Account) *ledger.Account {
	acct := &ledger.Account{
		ID:       a.AccountID,
		Sequence: a.Sequence,
	}
	for _, b := range a.Balances {
		x, err := assetFromParts(b.Asset.Type, b.Asset.Code, b.Asset.Issuer)
		if err != nil {
			// Liquidity pool shares are not tradable with offers.
			continue
		}
		amount, err := parseAmount(b.Balance)
		if err != nil {
			slog.Warn("could not parse account balance (ignored)", "account", a.AccountID, "asset", x, "err", err)
			continue
		}
		locked, err := parseAmount(b.SellingLiabilities)
		if err != nil {
			slog.Warn("could not parse selling liabilities (ignored)", "account", a.AccountID, "asset", x, "err", err)
		}
		acct.Balances = append(acct.Balances, &ledger.Balance{
			Asset:              x,
			Amount:             amount,
			SellingLiabilities: locked,
		})
	}
	return acct
}

func (c *Client) GetOpenOffers(ctx context.Context, id string) ([]*ledger.Offer, error) {
	hc, err := c.horizon(ctx)
	if err != nil {
		return nil, err
	}
	page, err := hc.Offers(horizonclient.OfferRequest{ForAccount: id, Limit: c.opts.PageLimit})
	if err != nil {
		return nil, wrapError(ctx, fmt.Sprintf("could not list offers of account %q", id), err)
	}

	var offers []*ledger.Offer
	for _, o := range page.Embedded.Records {
		selling, err := assetFromParts(o.Selling.Type, o.Selling.Code, o.Selling.Issuer)
		if err != nil {
			return nil, err
		}
		buying, err := assetFromParts(o.Buying.Type, o.Buying.Code, o.Buying.Issuer)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(o.Amount)
		if err != nil {
			return nil, err
		}
		offers = append(offers, &ledger.Offer{
			ID:      o.ID,
			Seller:  o.Seller,
			Selling: selling,
			Buying:  buying,
			Amount:  amount,
			Price:   ledger.Price{N: int32(o.PriceR.N), D: int32(o.PriceR.D)},
		})
	}
	return offers, nil
}

func (c *Client) GetOrderBook(ctx context.Context, selling, buying asset.Asset) (*ledger.OrderBook, error) {
	hc, err := c.horizon(ctx)
	if err != nil {
		return nil, err
	}
	req := horizonclient.OrderBookRequest{
		SellingAssetType:   assetType(selling),
		SellingAssetCode:   selling.Code,
		SellingAssetIssuer: selling.Issuer,
		BuyingAssetType:    assetType(buying),
		BuyingAssetCode:    buying.Code,
		BuyingAssetIssuer:  buying.Issuer,
		Limit:              20,
	}
	summary, err := hc.OrderBook(req)
	if err != nil {
		return nil, wrapError(ctx, fmt.Sprintf("could not get order book for %s/%s", selling, buying), err)
	}

	book := &ledger.OrderBook{Selling: selling, Buying: buying}
	for _, v := range summary.Asks {
		level, err := askLevel(int32(v.PriceR.N), int32(v.PriceR.D), v.Amount)
		if err != nil {
			return nil, err
		}
		book.Asks = append(book.Asks, level)
	}
	for _, v := range summary.Bids {
		level, err := bidLevel(int32(v.PriceR.N), int32(v.PriceR.D), v.Amount)
		if err != nil {
			return nil, err
		}
		book.Bids = append(book.Bids, level)
	}
	return book, nil
}

func (c *Client) GetRecentTrades(ctx context.Context, base, counter asset.Asset) ([]*ledger.Trade, error) {
	hc, err := c.horizon(ctx)
	if err != nil {
		return nil, err
	}
	req := horizonclient.TradeRequest{
		BaseAssetType:      assetType(base),
		BaseAssetCode:      base.Code,
		BaseAssetIssuer:    base.Issuer,
		CounterAssetType:   assetType(counter),
		CounterAssetCode:   counter.Code,
		CounterAssetIssuer: counter.Issuer,
		Order:              horizonclient.OrderDesc,
		Limit:              c.opts.PageLimit,
	}
	page, err := hc.Trades(req)
	if err != nil {
		return nil, wrapError(ctx, fmt.Sprintf("could not get trades for %s/%s", base, counter), err)
	}

	var trades []*ledger.Trade
	for _, t := range page.Embedded.Records {
		baseAmount, err := parseAmount(t.BaseAmount)
		if err != nil {
			return nil, err
		}
		counterAmount, err := parseAmount(t.CounterAmount)
		if err != nil {
			return nil, err
		}
		// Horizon may report the pair in either orientation.
		tbase, err := assetFromParts(t.BaseAssetType, t.BaseAssetCode, t.BaseAssetIssuer)
		if err != nil {
			continue
		}
		trade := &ledger.Trade{
			ID:            t.ID,
			Base:          base,
			Counter:       counter,
			BaseAmount:    baseAmount,
			CounterAmount: counterAmount,
			BaseIsSeller:  t.BaseIsSeller,
			Time:          t.LedgerCloseTime,
		}
		if !tbase.Equal(base) {
			trade.BaseAmount, trade.CounterAmount = counterAmount, baseAmount
			trade.BaseIsSeller = !t.BaseIsSeller
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, stx *ledger.SignedTransaction) (*ledger.SubmitResult, error) {
	if stx.Envelope == "" {
		return nil, fmt.Errorf("transaction is not signed: %w", ledger.ErrInvalidOperation)
	}
	hc, err := c.horizon(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := hc.SubmitTransactionXDR(stx.Envelope)
	if err != nil {
		result := &ledger.SubmitResult{}
		herr := horizonclient.GetError(err)
		if herr == nil {
			return nil, wrapError(ctx, "could not submit transaction", err)
		}
		codes, cerr := herr.ResultCodes()
		if cerr != nil || codes == nil {
			return nil, wrapError(ctx, "could not submit transaction", err)
		}
		result.ResultCode = resultCode(codes.TransactionCode, codes.OperationCodes)
		return result, fmt.Errorf("transaction failed with %s: %w", result.ResultCode, errorFromCodes(codes.TransactionCode, codes.OperationCodes))
	}

	result := &ledger.SubmitResult{
		Success:    resp.Successful,
		ResultCode: "tx_success",
		Hash:       resp.Hash,
	}
	if op, ok := stx.Operation.(*ledger.ManageOffer); ok {
		result.OfferID = op.OfferID
		if id, ok := offerIDFromResult(resp.ResultXdr); ok {
			result.OfferID = id
		}
	}
	return result, nil
}

// resultCode returns the most specific result code.
func resultCode(txCode string, opCodes []string) string {
	for _, code := range opCodes {
		if code != "" && code != "op_success" {
			return code
		}
	}
	return txCode
}

// errorFromCodes maps horizon transaction and operation result codes to the
// ledger errors.
func errorFromCodes(txCode string, opCodes []string) error {
	for _, code := range opCodes {
		switch code {
		case "op_underfunded", "op_low_reserve", "op_cross_self":
			return ledger.ErrInsufficientBalance
		case "op_offer_not_found":
			return ledger.ErrOfferNotFound
		case "op_sell_no_trust", "op_buy_no_trust", "op_no_trust", "op_line_full",
			"op_sell_not_authorized", "op_buy_not_authorized", "op_not_authorized", "op_no_issuer":
			return ledger.ErrAssetMismatch
		case "op_malformed", "op_no_destination", "op_already_exists":
			return ledger.ErrInvalidOperation
		}
	}
	switch txCode {
	case "tx_bad_seq":
		return ledger.ErrBadSequence
	case "tx_insufficient_balance", "tx_insufficient_fee":
		return ledger.ErrInsufficientBalance
	case "tx_no_source_account":
		return ledger.ErrAccountNotFound
	case "tx_bad_auth", "tx_bad_auth_extra":
		return ledger.ErrMalformedCredential
	case "tx_too_late", "tx_too_early", "tx_internal_error":
		return ledger.ErrTransient
	}
	return ledger.ErrInvalidOperation
}

// wrapError converts horizon request failures into the ledger errors.
func wrapError(ctx context.Context, msg string, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return fmt.Errorf("%s: %w", msg, cause)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", msg, ledger.ErrTransient, err)
	}
	herr := horizonclient.GetError(err)
	if herr == nil {
		// Network and decoding failures.
		return fmt.Errorf("%s: %w: %w", msg, ledger.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, errorFromStatus(herr.Problem.Status), err)
}

func errorFromStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ledger.ErrAccountNotFound
	case status == http.StatusTooManyRequests, status >= 500:
		return ledger.ErrTransient
	}
	return ledger.ErrInvalidOperation
}
