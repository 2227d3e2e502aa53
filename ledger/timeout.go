// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"context"
	"time"

	"github.com/bvk/makerbot/asset"
)

type timeoutClient struct {
	Client

	timeout time.Duration
}

// WithTimeout returns a client where every call is bounded by the timeout.
// Deadline errors classify as Transient.
func WithTimeout(c Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return c
	}
	return &timeoutClient{Client: c, timeout: timeout}
}

func (c *timeoutClient) LoadAccount(ctx context.Context, id string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.LoadAccount(ctx, id)
}

func (c *timeoutClient) GetOpenOffers(ctx context.Context, id string) ([]*Offer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.GetOpenOffers(ctx, id)
}

func (c *timeoutClient) GetOrderBook(ctx context.Context, selling, buying asset.Asset) (*OrderBook, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.GetOrderBook(ctx, selling, buying)
}

func (c *timeoutClient) GetRecentTrades(ctx context.Context, base, counter asset.Asset) ([]*Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.GetRecentTrades(ctx, base, counter)
}

func (c *timeoutClient) SubmitTransaction(ctx context.Context, tx *SignedTransaction) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Client.SubmitTransaction(ctx, tx)
}
