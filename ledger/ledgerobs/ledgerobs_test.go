// Copyright (c) 2025 BVK Chaitanya

package ledgerobs

import (
	"context"
	"errors"
	"testing"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/ledger/memledger"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpans(t *testing.T) {
	ctx := context.Background()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(ctx)

	old := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(old)

	mem := memledger.New()
	id, err := mem.AddAccount("SALICE", 1)
	if err != nil {
		t.Fatal(err)
	}
	client := Wrap(mem)

	if _, err := client.LoadAccount(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := client.LoadAccount(ctx, "GNOBODY"); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("wanted ErrAccountNotFound, got %v", err)
	}
	if _, err := client.GetOrderBook(ctx, asset.Native, asset.Credit("USD", "GISSUERX")); err != nil {
		t.Fatal(err)
	}

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("wanted 3 spans, got %d", len(spans))
	}
	if name := spans[0].Name(); name != "ledger.LoadAccount" {
		t.Fatalf("wanted ledger.LoadAccount span, got %q", name)
	}
	if len(spans[1].Events()) == 0 {
		t.Fatalf("wanted an error event on the failed call span")
	}
}
