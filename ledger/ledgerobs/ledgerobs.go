// Copyright (c) 2025 BVK Chaitanya

// Package ledgerobs wraps a ledger client with tracing spans and logging.
package ledgerobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bvk/makerbot/ledger"

type observableClient struct {
	client ledger.Client
	tracer trace.Tracer
}

var _ ledger.Client = (*observableClient)(nil)

// Wrap returns a client that records a span and a debug log for every call.
// Spans are no-ops unless a tracer provider is installed.
func Wrap(client ledger.Client) ledger.Client {
	return &observableClient{
		client: client,
		tracer: otel.Tracer(tracerName),
	}
}

func (c *observableClient) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := c.tracer.Start(ctx, "ledger."+name, trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

func (c *observableClient) finish(ctx context.Context, span trace.Span, name string, start time.Time, err error, args ...any) {
	defer span.End()

	args = append(args, "duration", time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "ledger call failed", append([]any{"method", name, "class", ledger.Classify(err).String(), "err", err}, args...)...)
		return
	}
	slog.DebugContext(ctx, "ledger call succeeded", append([]any{"method", name}, args...)...)
}

func (c *observableClient) NewSigner(secret string) (ledger.Signer, error) {
	return c.client.NewSigner(secret)
}

func (c *observableClient) LoadAccount(ctx context.Context, id string) (*ledger.Account, error) {
	ctx, span, start := c.start(ctx, "LoadAccount", attribute.String("account", id))
	v, err := c.client.LoadAccount(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Int64("sequence", v.Sequence))
	}
	c.finish(ctx, span, "LoadAccount", start, err, "account", id)
	return v, err
}

func (c *observableClient) GetOpenOffers(ctx context.Context, id string) ([]*ledger.Offer, error) {
	ctx, span, start := c.start(ctx, "GetOpenOffers", attribute.String("account", id))
	v, err := c.client.GetOpenOffers(ctx, id)
	c.finish(ctx, span, "GetOpenOffers", start, err, "account", id, "offers", len(v))
	return v, err
}

func (c *observableClient) GetOrderBook(ctx context.Context, selling, buying asset.Asset) (*ledger.OrderBook, error) {
	ctx, span, start := c.start(ctx, "GetOrderBook",
		attribute.String("selling", selling.String()),
		attribute.String("buying", buying.String()))
	v, err := c.client.GetOrderBook(ctx, selling, buying)
	c.finish(ctx, span, "GetOrderBook", start, err, "selling", selling, "buying", buying)
	return v, err
}

func (c *observableClient) GetRecentTrades(ctx context.Context, base, counter asset.Asset) ([]*ledger.Trade, error) {
	ctx, span, start := c.start(ctx, "GetRecentTrades",
		attribute.String("base", base.String()),
		attribute.String("counter", counter.String()))
	v, err := c.client.GetRecentTrades(ctx, base, counter)
	c.finish(ctx, span, "GetRecentTrades", start, err, "base", base, "counter", counter, "trades", len(v))
	return v, err
}

func (c *observableClient) SubmitTransaction(ctx context.Context, tx *ledger.SignedTransaction) (*ledger.SubmitResult, error) {
	ctx, span, start := c.start(ctx, "SubmitTransaction",
		attribute.String("source", tx.Source),
		attribute.Int64("sequence", tx.Sequence),
		attribute.String("operation", tx.Operation.OperationType()))
	v, err := c.client.SubmitTransaction(ctx, tx)
	var code string
	if v != nil {
		code = v.ResultCode
		span.SetAttributes(attribute.String("result_code", code), attribute.Int64("offer_id", v.OfferID))
	}
	c.finish(ctx, span, "SubmitTransaction", start, err, "source", tx.Source, "sequence", tx.Sequence, "result", code)
	return v, err
}
